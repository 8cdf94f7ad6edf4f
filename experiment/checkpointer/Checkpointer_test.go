package checkpointer

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"
)

// counter is a Serializable integer
type counter struct {
	value int
}

func (c *counter) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(c.value)
	return buf.Bytes(), err
}

func (c *counter) GobDecode(in []byte) error {
	return gob.NewDecoder(bytes.NewReader(in)).Decode(&c.value)
}

func TestNEpisode(t *testing.T) {
	dir := t.TempDir()
	object := &counter{}
	names := FilenameEnumerator(0, filepath.Join(dir, "approx"), ".bin")

	c, err := NewNEpisode(3, object, names)
	if err != nil {
		t.Fatal(err)
	}

	for episode := 0; episode < 7; episode++ {
		object.value = episode
		if err := c.Checkpoint(episode); err != nil {
			t.Fatal(err)
		}
	}

	// Episodes 2 and 5 are checkpointed
	for i, want := range []int{2, 5} {
		filename := filepath.Join(dir, "approx"+string(rune('1'+i))+".bin")
		loaded := &counter{}
		if err := Load(loaded, filename); err != nil {
			t.Fatalf("load: %v", err)
		}
		if loaded.value != want {
			t.Errorf("checkpoint %v\n\twant(%v)\n\thave(%v)", i, want,
				loaded.value)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "approx3.bin")); err == nil {
		t.Errorf("checkpoint: unexpected third checkpoint")
	}
}

func TestNewNEpisodeInvalid(t *testing.T) {
	if _, err := NewNEpisode(0, &counter{}, Fixed("x")); err == nil {
		t.Errorf("newNEpisode: expected error for zero interval")
	}
}
