package manifest

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		primary   map[string]any
		secondary map[string]any
		want      map[string]any
	}{
		{
			name:      "empty secondary is identity",
			primary:   map[string]any{"a": 1, "b": map[string]any{"c": "x"}},
			secondary: map[string]any{},
			want:      map[string]any{"a": 1, "b": map[string]any{"c": "x"}},
		},
		{
			name:      "nil secondary is identity",
			primary:   map[string]any{"a": "keep"},
			secondary: nil,
			want:      map[string]any{"a": "keep"},
		},
		{
			name:      "empty primary copies secondary",
			primary:   nil,
			secondary: map[string]any{"a": 2},
			want:      map[string]any{"a": 2},
		},
		{
			name:      "primary wins scalar conflict",
			primary:   map[string]any{"version": "2"},
			secondary: map[string]any{"version": "1"},
			want:      map[string]any{"version": "2"},
		},
		{
			name:      "primary wins list conflict without concatenation",
			primary:   map[string]any{"after": []any{"a"}},
			secondary: map[string]any{"after": []any{"b", "c"}},
			want:      map[string]any{"after": []any{"a"}},
		},
		{
			name:      "primary scalar beats secondary map",
			primary:   map[string]any{"load": "off"},
			secondary: map[string]any{"load": map[string]any{"url": "/x.js"}},
			want:      map[string]any{"load": "off"},
		},
		{
			name: "maps merge recursively",
			primary: map[string]any{
				"modules": map[string]any{
					"app": map[string]any{"load": map[string]any{"version": "2"}},
				},
			},
			secondary: map[string]any{
				"modules": map[string]any{
					"app":    map[string]any{"load": map[string]any{"version": "1", "url": "/app.js"}},
					"jquery": map[string]any{"load": map[string]any{"url": "/jq.js"}},
				},
				"onLoad": "ready",
			},
			want: map[string]any{
				"modules": map[string]any{
					"app":    map[string]any{"load": map[string]any{"version": "2", "url": "/app.js"}},
					"jquery": map[string]any{"load": map[string]any{"url": "/jq.js"}},
				},
				"onLoad": "ready",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.primary, tt.secondary)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	primary := map[string]any{"m": map[string]any{"a": 1}}
	secondary := map[string]any{"m": map[string]any{"b": 2}, "s": 3}

	Merge(primary, secondary)

	if len(primary) != 1 || len(primary["m"].(map[string]any)) != 1 {
		t.Errorf("primary mutated: %#v", primary)
	}
	if len(secondary) != 2 || len(secondary["m"].(map[string]any)) != 1 {
		t.Errorf("secondary mutated: %#v", secondary)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a := map[string]any{"x": map[string]any{"y": []any{1, 2}}, "z": "q"}
	once := Merge(a, a)
	if !reflect.DeepEqual(once, a) {
		t.Errorf("Merge(a, a) = %#v, want %#v", once, a)
	}
	twice := Merge(once, a)
	if !reflect.DeepEqual(twice, once) {
		t.Errorf("Merge not stable: %#v vs %#v", twice, once)
	}
}

func TestMergeAll_EarlierWins(t *testing.T) {
	got := MergeAll(
		map[string]any{"a": 1},
		map[string]any{"a": 2, "b": 2},
		map[string]any{"a": 3, "b": 3, "c": 3},
	)
	want := map[string]any{"a": 1, "b": 2, "c": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeAll() = %#v, want %#v", got, want)
	}
}
