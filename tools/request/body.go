package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/apiflow/types"
)

// BodyKind is the wire form of a request body.
type BodyKind string

const (
	BodyNone      BodyKind = "none"
	BodyJSON      BodyKind = "json"
	BodyMultipart BodyKind = "multipart"
	BodyForm      BodyKind = "form"
	BodyRaw       BodyKind = "raw"
)

// copyBufferSize bounds the memory used to stream one file.
const copyBufferSize = 32 << 10

// openFile opens file sources; tests replace it to observe handles.
var openFile = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// FileSource is a local file checked at build time and opened when the body
// is streamed.
type FileSource struct {
	Path        string
	FileName    string
	ContentType string
	Size        int64
}

// Part is one multipart field: a text value or a file.
type Part struct {
	Name  string
	Value string
	File  *FileSource
}

// Body is a request body ready to be streamed.
type Body struct {
	Kind        BodyKind
	ContentType string
	// Data holds JSON, form and inline raw bodies.
	Data []byte
	// Parts holds multipart fields in declaration order.
	Parts []Part
	// File is the source of a raw file body.
	File *FileSource
}

// statFile checks a file argument.
func statFile(property string, v any) (*FileSource, error) {
	path, ok := v.(string)
	if !ok {
		return nil, types.Errorf(types.ErrMultipartBuild, "file argument %q must be a path string", property)
	}
	path = strings.TrimPrefix(path, "file://")
	if !filepath.IsAbs(path) {
		return nil, types.Errorf(types.ErrMultipartBuild, "file argument %q must be an absolute path", property)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, types.Errorf(types.ErrMultipartBuild, "file argument %q is not readable", property).WithCause(err)
	}
	if !info.Mode().IsRegular() {
		return nil, types.Errorf(types.ErrMultipartBuild, "file argument %q is not a regular file", property)
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &FileSource{
		Path:        path,
		FileName:    filepath.Base(path),
		ContentType: ct,
		Size:        info.Size(),
	}, nil
}

// fileSources returns the sources of a file argument, which may be a single
// path or an array of paths.
func fileSources(property string, v any) ([]*FileSource, error) {
	items, ok := v.([]any)
	if !ok {
		src, err := statFile(property, v)
		if err != nil {
			return nil, err
		}
		return []*FileSource{src}, nil
	}
	out := make([]*FileSource, 0, len(items))
	for _, item := range items {
		src, err := statFile(property, item)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// open returns a reader over the body, its content type and its length
// (-1 when unknown).
func (b *Body) open(ctx context.Context) (io.ReadCloser, string, int64) {
	switch b.Kind {
	case BodyMultipart:
		r, ct := streamMultipart(ctx, b.Parts)
		return r, ct, -1
	case BodyRaw:
		if b.File != nil {
			return &lazyFile{src: b.File}, b.ContentType, b.File.Size
		}
		return io.NopCloser(bytes.NewReader(b.Data)), b.ContentType, int64(len(b.Data))
	case BodyJSON, BodyForm:
		return io.NopCloser(bytes.NewReader(b.Data)), b.ContentType, int64(len(b.Data))
	default:
		return nil, "", 0
	}
}

// streamMultipart writes parts into a pipe from a separate goroutine. Closing
// the returned reader, which the transport does on cancellation, stops the
// writer and releases any open file.
func streamMultipart(ctx context.Context, parts []Part) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	go func() {
		err := writeParts(ctx, mw, parts)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, contentType
}

func writeParts(ctx context.Context, mw *multipart.Writer, parts []Part) error {
	buf := make([]byte, copyBufferSize)
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.File == nil {
			if err := mw.WriteField(p.Name, p.Value); err != nil {
				return err
			}
			continue
		}
		if err := writeFilePart(mw, p.Name, p.File, buf); err != nil {
			return err
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, name string, src *FileSource, buf []byte) error {
	f, err := openFile(src.Path)
	if err != nil {
		return types.Errorf(types.ErrMultipartBuild, "failed to open file for part %q", name).WithCause(err)
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(src.FileName)))
	h.Set("Content-Type", src.ContentType)
	w, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	// Hide WriterTo so the copy goes through buf.
	if _, err := io.CopyBuffer(w, struct{ io.Reader }{f}, buf); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return err
		}
		return types.Errorf(types.ErrMultipartBuild, "failed to read file for part %q", name).WithCause(err)
	}
	return nil
}

// lazyFile opens its source on first read.
type lazyFile struct {
	src *FileSource
	f   io.ReadCloser
}

func (l *lazyFile) Read(p []byte) (int, error) {
	if l.f == nil {
		f, err := openFile(l.src.Path)
		if err != nil {
			return 0, types.NewError(types.ErrMultipartBuild, "failed to open file body").WithCause(err)
		}
		l.f = f
	}
	return l.f.Read(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
