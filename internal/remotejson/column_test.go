package remotejson

import (
	"encoding/json"
	"testing"

	"github.com/invopop/jsonschema"

	"github.com/maruel/remotejson/internal/jsonvalue"
)

func TestColumnJSON(t *testing.T) {
	type row struct {
		Data Column `json:"data"`
		Opt  Column `json:"opt,omitzero"`
	}
	t.Run("by value", func(t *testing.T) {
		p := NewSaved(nil, "a/b.json", jsonvalue.MustParse(`{}`))
		b, err := json.Marshal(row{Data: NewColumn(p)})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if got, want := string(b), `{"data":"a/b.json"}`; got != want {
			t.Errorf("Marshal() = %s, want %s", got, want)
		}
	})
	t.Run("by pointer", func(t *testing.T) {
		r := &row{Opt: NewColumn(NewSaved(nil, "x.json", jsonvalue.MustParse(`1`)))}
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if got, want := string(b), `{"data":null,"opt":"x.json"}`; got != want {
			t.Errorf("Marshal() = %s, want %s", got, want)
		}
	})
	t.Run("unsupported value", func(t *testing.T) {
		if _, err := json.Marshal(row{Data: NewColumn(3)}); err == nil {
			t.Error("Marshal() of an unsaved raw value succeeded")
		}
	})
	t.Run("schema", func(t *testing.T) {
		r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
		s := r.Reflect(&row{})
		prop, ok := s.Properties.Get("data")
		if !ok {
			t.Fatal("missing data property")
		}
		if len(prop.OneOf) != 2 || prop.OneOf[0].Type != "string" || prop.OneOf[1].Type != "null" {
			t.Errorf("data schema = %+v", prop)
		}
	})
}
