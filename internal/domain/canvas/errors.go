package canvas

import "errors"

var (
	// ErrNodeNotFound 连线或配置引用了不存在的节点
	ErrNodeNotFound = errors.New("canvas: node not found")

	// ErrUnknownField 节点类型的表单中没有该字段
	ErrUnknownField = errors.New("canvas: unknown config field")

	// ErrInvalidFieldValue 字段值未通过表单校验
	ErrInvalidFieldValue = errors.New("canvas: invalid config value")

	// ErrInvalidSnapshot 导出数据无法还原为一致的图
	ErrInvalidSnapshot = errors.New("canvas: invalid snapshot")
)
