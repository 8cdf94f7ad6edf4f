package initwfn

import (
	"encoding/json"
	"testing"
)

func TestJSON(t *testing.T) {
	glorot, err := NewGlorotU(2.0)
	if err != nil {
		t.Fatal(err)
	}
	gaussian, err := NewGaussian(0.5, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	zeroes, err := NewZeroes()
	if err != nil {
		t.Fatal(err)
	}

	for _, init := range []*InitWFn{glorot, gaussian, zeroes} {
		data, err := json.Marshal(init)
		if err != nil {
			t.Fatalf("%v: marshal: %v", init.Type, err)
		}

		var decoded InitWFn
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("%v: unmarshal: %v", init.Type, err)
		}

		if decoded.Type != init.Type || decoded.Config != init.Config {
			t.Errorf("json\n\twant(%v)\n\thave(%v)", init, &decoded)
		}
		if decoded.InitWFn() == nil {
			t.Errorf("%v: unmarshalled InitWFn not created", init.Type)
		}
	}
}

func TestUnmarshalUnknownType(t *testing.T) {
	var init InitWFn
	err := json.Unmarshal([]byte(`{"Type": "NoSuchInit"}`), &init)
	if err == nil {
		t.Errorf("unmarshal: expected error for unknown type")
	}
}
