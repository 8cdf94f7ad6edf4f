package checkpointer

import "fmt"

// FilenameEnumerator returns a function which returns filename with an
// increasing counter suffix, starting after start, followed by
// extension. Each checkpoint is therefore kept in its own file.
func FilenameEnumerator(start int, filename, extension string) func() string {
	i := start
	return func() string {
		i++
		return fmt.Sprintf("%v%v%v", filename, i, extension)
	}
}

// Fixed returns a function which always returns filename, so that each
// checkpoint overwrites the previous one
func Fixed(filename string) func() string {
	return func() string {
		return filename
	}
}
