package archive

import "fmt"

// UncommittedFileError is returned for index files whose header is not
// committed.
type UncommittedFileError struct {
	Name string
}

func (e UncommittedFileError) Error() string {
	return fmt.Sprintf("%s is not committed", e.Name)
}

func (e UncommittedFileError) Is(target error) bool {
	_, ok := target.(UncommittedFileError)
	return ok
}

// ManifestNotFoundError is returned when a prefix holds no manifest.
type ManifestNotFoundError struct {
	Prefix string
}

func (e ManifestNotFoundError) Error() string {
	return fmt.Sprintf("no manifest under %s", e.Prefix)
}

func (e ManifestNotFoundError) Is(target error) bool {
	_, ok := target.(ManifestNotFoundError)
	return ok
}

// ChecksumMismatchError is returned when a downloaded file does not match
// its manifest entry.
type ChecksumMismatchError struct {
	Name string
}

func (e ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch on %s", e.Name)
}

func (e ChecksumMismatchError) Is(target error) bool {
	_, ok := target.(ChecksumMismatchError)
	return ok
}
