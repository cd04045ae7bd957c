package document

// NewSampleWidgets returns the text widget seeded into development sessions.
func NewSampleWidgets(id string) []Widget {
	return []Widget{
		TextWidget{
			ID:            id,
			Transform:     IdentityAt(0, 0),
			Text:          "Hello this is a test",
			FontSize:      72,
			Fill:          "#880808",
			Align:         AlignLeft,
			ShadowColor:   "#000000",
			ShadowOffsetX: 3,
			ShadowOffsetY: 3,
			ShadowBlur:    5,
			ShadowEnabled: false,
		},
	}
}
