package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/voixagent/voixagent/util"
)

// MultipartBody is a multipart/form-data body, used for audio uploads.
// Fields are written in key order, then Files in slice order.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one uploaded file.
type FileField struct {
	FieldName string
	FileName  string
	// ContentType defaults to application/octet-stream.
	ContentType string
	Data        []byte
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (f FileField) header() textproto.MIMEHeader {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(f.FieldName), quoteEscaper.Replace(f.FileName)))
	h.Set("Content-Type", ct)
	return h
}

func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range util.SortedKeys(m.Fields) {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	for _, f := range m.Files {
		part, err := w.CreatePart(f.header())
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
