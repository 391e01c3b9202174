package msgfile

import (
	"errors"
	"testing"
)

func TestParseBody(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"string unwrapped", `"hello world"`, "hello world", false},
		{"object compacted", "{ \"a\" : 1,\n \"b\": [1, 2] }", `{"a":1,"b":[1,2]}`, false},
		{"number", ` 42 `, "42", false},
		{"null", `null`, "", true},
		{"empty string", `"  "`, "", true},
		{"malformed", `{"a":`, "", true},
		{"trailing data", `{"a":1}{}`, "", true},
		{"empty input", ``, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBody([]byte(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMessage) {
					t.Fatalf("want ErrInvalidMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJSON_ArrayExpands(t *testing.T) {
	bodies, err := ParseJSON([]byte(`["a", {"k":"v"}, 3]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", `{"k":"v"}`, "3"}
	if len(bodies) != len(want) {
		t.Fatalf("want %d bodies, got %d", len(want), len(bodies))
	}
	for i := range want {
		if string(bodies[i]) != want[i] {
			t.Fatalf("body %d: got %q, want %q", i, bodies[i], want[i])
		}
	}
}

func TestParseJSON_BadElementRejectsAll(t *testing.T) {
	_, err := ParseJSON([]byte(`["a", null]`))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("want ErrInvalidMessage, got %v", err)
	}
}

func TestParseJSON_SingleObject(t *testing.T) {
	bodies, err := ParseJSON([]byte(`{"id": 1}`))
	if err != nil || len(bodies) != 1 || string(bodies[0]) != `{"id":1}` {
		t.Fatalf("got %q, %v", bodies, err)
	}
}
