package document

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeWidget(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    WidgetType
		wantErr error
	}{
		{
			name:  "text",
			input: `{"type":"text","id":"a","text":"hi","fontSize":12,"x":1,"y":2,"scaleX":1,"scaleY":1}`,
			want:  TypeText,
		},
		{
			name:  "image",
			input: `{"type":"image","id":"b","drawW":10,"drawH":5}`,
			want:  TypeImage,
		},
		{
			name:  "sticker",
			input: `{"type":"sticker","id":"c"}`,
			want:  TypeSticker,
		},
		{
			name:    "unknown",
			input:   `{"type":"brush","id":"d"}`,
			wantErr: ErrUnknownWidgetType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := DecodeWidget([]byte(tt.input))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeWidget: %v", err)
			}
			if w.Type() != tt.want {
				t.Errorf("Type() = %v, want %v", w.Type(), tt.want)
			}
		})
	}
}

func TestDecodeImageWidgetDefaultsAlpha(t *testing.T) {
	w, err := DecodeWidget([]byte(`{"type":"image","id":"b"}`))
	if err != nil {
		t.Fatal(err)
	}
	img := w.(ImageWidget)
	if img.Filters.Alpha != 1 {
		t.Errorf("Alpha = %v, want 1", img.Filters.Alpha)
	}
}

func TestMarshalCarriesDiscriminant(t *testing.T) {
	data, err := json.Marshal([]Widget{
		TextWidget{ID: "t", Transform: IdentityAt(4, 5), Text: "x"},
		StickerWidget{ID: "s"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw[0]["type"] != "text" || raw[1]["type"] != "sticker" {
		t.Errorf("types = %v, %v", raw[0]["type"], raw[1]["type"])
	}
	if raw[0]["x"] != 4.0 {
		t.Errorf("x = %v, want 4 (transform fields are flattened)", raw[0]["x"])
	}
}

func TestMergePreservesTypeAndID(t *testing.T) {
	w := TextWidget{ID: "t1", Text: "before", FontSize: 20, Fill: "#fff"}

	got, err := Merge(w, Fields{"text": "after", "id": "other", "type": "image"})
	if err != nil {
		t.Fatal(err)
	}

	text, ok := got.(TextWidget)
	if !ok {
		t.Fatalf("merged widget is %T, want TextWidget", got)
	}
	if text.ID != "t1" {
		t.Errorf("ID = %q, want t1", text.ID)
	}
	if text.Text != "after" {
		t.Errorf("Text = %q, want after", text.Text)
	}
	if text.FontSize != 20 || text.Fill != "#fff" {
		t.Errorf("untouched fields changed: %+v", text)
	}
}

func TestMergeImageFiltersIsPartial(t *testing.T) {
	w := ImageWidget{ID: "i", Filters: FiltersState{Alpha: 1, Hue: 30}}

	got, err := Merge(w, Fields{"filters": map[string]any{"blurRadius": 4}})
	if err != nil {
		t.Fatal(err)
	}
	f := got.(ImageWidget).Filters
	if f.BlurRadius != 4 || f.Hue != 30 || f.Alpha != 1 {
		t.Errorf("filters = %+v", f)
	}
}

func TestTransformPatchApply(t *testing.T) {
	base := Transform{X: 1, Y: 2, ScaleX: 3, ScaleY: 4, Rotation: 5}
	x := 10.0
	got := TransformPatch{X: &x}.Apply(base)
	want := Transform{X: 10, Y: 2, ScaleX: 3, ScaleY: 4, Rotation: 5}
	if got != want {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}
