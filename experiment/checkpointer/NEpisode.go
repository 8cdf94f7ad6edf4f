package checkpointer

import "fmt"

// nEpisode implements checkpointing every N episodes
type nEpisode struct {
	interval int
	object   Serializable // Object to save

	// filename returns the filename to save the object in on each
	// checkpoint. Use FilenameEnumerator to keep every
	// checkpoint, or Fixed to keep only the most recent one.
	filename func() string
}

// NewNEpisode returns a checkpointer that checkpoints object every n
// episodes, after episodes n-1, 2n-1, ...
func NewNEpisode(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNEpisode: interval must be positive"+
			"\n\twant(>0)\n\thave(%v)", n)
	}
	return &nEpisode{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if episode ends an interval
func (n *nEpisode) Checkpoint(episode int) error {
	if (episode+1)%n.interval == 0 {
		return Save(n.object, n.filename())
	}
	return nil
}
