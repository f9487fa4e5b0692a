package schema

import (
	"encoding/json"
	"testing"
)

func TestEmbeddedSchemasAreValidJSON(t *testing.T) {
	for _, v := range []int{1, 2} {
		raw, ok := Raw(v)
		if !ok {
			t.Fatalf("missing schema v%d", v)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("schema v%d: %v", v, err)
		}
	}
	if _, ok := Raw(3); ok {
		t.Fatalf("unexpected schema v3")
	}
}

func TestValidateCollection(t *testing.T) {
	cases := []struct {
		name    string
		version int
		payload string
		ok      bool
	}{
		{"v2 minimal", 2, `{"schema_version":2,"records":[],"templates":[]}`, true},
		{"v2 record", 2, `{"schema_version":2,"records":[{"id":"a","stage":"intake","name":"x"}],"templates":[{"id":"t","name":"n","subject":"s","body":"b"}]}`, true},
		{"v2 missing stage", 2, `{"schema_version":2,"records":[{"id":"a"}],"templates":[]}`, false},
		{"v2 wrong version", 2, `{"schema_version":3,"records":[],"templates":[]}`, false},
		{"v2 records not array", 2, `{"schema_version":2,"records":{},"templates":[]}`, false},
		{"v1 items", 1, `{"items":[{"id":"1","grantName":"g","stage":"research"}],"templates":[]}`, true},
		{"v1 missing items", 1, `{"templates":[]}`, false},
		{"not json", 2, `{`, false},
		{"unknown version", 9, `{}`, false},
	}
	for _, c := range cases {
		err := ValidateCollection(c.version, []byte(c.payload))
		if (err == nil) != c.ok {
			t.Fatalf("%s: expected ok=%v, got %v", c.name, c.ok, err)
		}
	}
}
