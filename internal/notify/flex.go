package notify

// The types below mirror the LINE Flex Message JSON schema for the subset of
// components the templates use.

// FlexComponent is any element allowed inside a box.
type FlexComponent interface {
	flexComponent()
}

// FlexBubble is a single card container.
type FlexBubble struct {
	Type   string        `json:"type"`
	Size   string        `json:"size,omitempty"`
	Header *FlexBox      `json:"header,omitempty"`
	Body   *FlexBox      `json:"body,omitempty"`
	Footer *FlexBox      `json:"footer,omitempty"`
	Styles *BubbleStyles `json:"styles,omitempty"`
}

// BubbleStyles sets per-block styling.
type BubbleStyles struct {
	Header *BlockStyle `json:"header,omitempty"`
	Footer *BlockStyle `json:"footer,omitempty"`
}

// BlockStyle is a block background.
type BlockStyle struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// FlexBox lays out child components.
type FlexBox struct {
	Type            string          `json:"type"`
	Layout          string          `json:"layout"`
	Contents        []FlexComponent `json:"contents"`
	Spacing         string          `json:"spacing,omitempty"`
	Margin          string          `json:"margin,omitempty"`
	PaddingAll      string          `json:"paddingAll,omitempty"`
	BackgroundColor string          `json:"backgroundColor,omitempty"`
}

func (*FlexBox) flexComponent() {}

// FlexText renders a run of text.
type FlexText struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Size   string `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`
	Color  string `json:"color,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
	Flex   *int   `json:"flex,omitempty"`
	Margin string `json:"margin,omitempty"`
}

func (*FlexText) flexComponent() {}

// FlexButton opens its action when tapped.
type FlexButton struct {
	Type   string    `json:"type"`
	Style  string    `json:"style,omitempty"`
	Color  string    `json:"color,omitempty"`
	Height string    `json:"height,omitempty"`
	Action URIAction `json:"action"`
}

func (*FlexButton) flexComponent() {}

// FlexSeparator draws a horizontal rule.
type FlexSeparator struct {
	Type   string `json:"type"`
	Margin string `json:"margin,omitempty"`
}

func (*FlexSeparator) flexComponent() {}

// URIAction opens a link.
type URIAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

func vbox(spacing string, contents ...FlexComponent) *FlexBox {
	return &FlexBox{Type: "box", Layout: "vertical", Spacing: spacing, Contents: contents}
}

func text(value, size, weight, color string) *FlexText {
	return &FlexText{Type: "text", Text: value, Size: size, Weight: weight, Color: color, Wrap: true}
}

func separator() *FlexSeparator {
	return &FlexSeparator{Type: "separator", Margin: "md"}
}

func button(label, uri, color string) *FlexButton {
	return &FlexButton{
		Type:   "button",
		Style:  "primary",
		Color:  color,
		Height: "sm",
		Action: URIAction{Type: "uri", Label: label, URI: uri},
	}
}

// row renders a "label: value" line.
func row(label, value string) *FlexBox {
	labelFlex, valueFlex := 2, 5
	return &FlexBox{
		Type:    "box",
		Layout:  "baseline",
		Spacing: "sm",
		Contents: []FlexComponent{
			&FlexText{Type: "text", Text: label, Size: "sm", Color: mutedColor, Flex: &labelFlex},
			&FlexText{Type: "text", Text: value, Size: "sm", Color: bodyColor, Wrap: true, Flex: &valueFlex},
		},
	}
}
