package gphoto

// File is a reusable buffer for data fetched from the device.
type File struct {
	name     string
	mimeType string
	data     []byte
}

// NewFile allocates an empty buffer.
func NewFile() *File {
	return &File{}
}

// SetData replaces the buffer contents. The slice is retained.
func (f *File) SetData(name, mimeType string, data []byte) {
	f.name = name
	f.mimeType = mimeType
	f.data = data
}

// Data returns the buffer contents. The slice is only valid until the next
// SetData or Reset.
func (f *File) Data() []byte {
	return f.data
}

func (f *File) Name() string     { return f.name }
func (f *File) MIMEType() string { return f.mimeType }
func (f *File) Size() int        { return len(f.data) }

// Reset empties the buffer for reuse.
func (f *File) Reset() {
	f.name = ""
	f.mimeType = ""
	f.data = f.data[:0]
}

// Free drops the buffer memory.
func (f *File) Free() {
	f.name = ""
	f.mimeType = ""
	f.data = nil
}
