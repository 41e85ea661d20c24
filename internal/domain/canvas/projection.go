package canvas

// Viewport 画布视口：平移 (X, Y) 与缩放 Zoom
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Bounds 画布容器在屏幕上的包围盒偏移
type Bounds struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// Projector 屏幕坐标 -> 画布坐标
type Projector interface {
	Project(p Point) Position
}

// ViewportProjector 先扣除容器偏移（若已知），再按视口平移、缩放换算
type ViewportProjector struct {
	Viewport  Viewport
	Container *Bounds
}

func (vp ViewportProjector) Project(p Point) Position {
	x, y := p.X, p.Y
	if vp.Container != nil {
		x -= vp.Container.Left
		y -= vp.Container.Top
	}
	zoom := vp.Viewport.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return Position{
		X: (x - vp.Viewport.X) / zoom,
		Y: (y - vp.Viewport.Y) / zoom,
	}
}

// IdentityProjector 像素坐标原样作为画布坐标
var IdentityProjector Projector = ViewportProjector{Viewport: Viewport{Zoom: 1}}
