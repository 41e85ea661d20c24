package telegram

// Update Bot API 推送的更新，只解析用到的字段
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message 普通消息
type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from,omitempty"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Photo     []PhotoSize `json:"photo,omitempty"`
}

// HasPhoto 消息是否带图片
func (m *Message) HasPhoto() bool {
	return m != nil && len(m.Photo) > 0
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CallbackQuery 内联按钮点击
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Data    string   `json:"data"`
	Message *Message `json:"message,omitempty"`
}

// Button 内联键盘按钮
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Keyboard 按行排列的内联键盘
type Keyboard [][]Button

// Reply 脚本产出的一条消息
type Reply struct {
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}

func row(buttons ...Button) []Button { return buttons }

func btn(text, data string) Button { return Button{Text: text, CallbackData: data} }

func say(text string, rows ...[]Button) Reply {
	if len(rows) == 0 {
		return Reply{Text: text}
	}
	return Reply{Text: text, Keyboard: Keyboard(rows)}
}
