// Package upload accepts multipart form submissions, checks declared files
// against per-field rules and a MIME allow-list, and writes them to a blob
// store.
//
// The MIME check trusts the Content-Type the client declared for each part.
// File contents are not inspected.
package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/blob"
)

// PathPrefix is prepended to blob names to form the relative paths stored
// in records and served by the static handler.
const PathPrefix = "uploads/"

const maxMemory = 10 << 20

type AllowList struct {
	Types   []string
	Message string
}

func (a AllowList) allows(mediaType string) bool {
	for _, t := range a.Types {
		if t == mediaType {
			return true
		}
	}
	return false
}

var (
	ImageTypes = AllowList{
		Types:   []string{"image/jpeg", "image/png"},
		Message: "Invalid file type. Only JPEG, PNG files are allowed.",
	}
	DocumentTypes = AllowList{
		Types:   []string{"image/jpeg", "image/png", "application/pdf"},
		Message: "Invalid file type. Only JPEG, PNG, PDF files are allowed.",
	}
)

// Rule declares a file field and how many files it may carry.
type Rule struct {
	Field    string
	MaxCount int
}

var ErrNotMultipart = errors.New("request is not multipart/form-data")

type Uploader struct {
	blobs    blob.Store
	maxBytes int64
	newName  func(original string) string
}

func New(blobs blob.Store, maxBytes int64) *Uploader {
	return &Uploader{blobs: blobs, maxBytes: maxBytes, newName: BlobName}
}

// BlobName returns a unique blob name that keeps the base of the client's
// original filename readable.
func BlobName(original string) string {
	return uuid.NewString() + "-" + cleanFilename(original)
}

func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.ReplaceAll(name, "\x00", "")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}

type pending struct {
	field       string
	header      *multipart.FileHeader
	contentType string
}

// Form is a parsed, validated multipart submission whose files have not
// been written yet.
type Form struct {
	u     *Uploader
	form  *multipart.Form
	files []pending
}

// Parse reads the multipart body of r and validates every file part against
// rules and allow. Nothing is written when it fails.
func (u *Uploader) Parse(w http.ResponseWriter, r *http.Request, rules []Rule, allow AllowList) (*Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			return nil, ErrNotMultipart
		case errors.As(err, &tooLarge):
			return nil, fmt.Errorf("File too large: limit is %d bytes", tooLarge.Limit)
		}
		return nil, err
	}

	f := &Form{u: u, form: r.MultipartForm}
	if err := f.check(rules, allow); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *Form) check(rules []Rule, allow AllowList) error {
	declared := make(map[string]bool, len(rules))
	for _, rule := range rules {
		declared[rule.Field] = true
		headers := f.form.File[rule.Field]
		if len(headers) > rule.MaxCount {
			return fmt.Errorf("Unexpected field: %s accepts at most %d file(s)", rule.Field, rule.MaxCount)
		}
		for _, h := range headers {
			mediaType, _, err := mime.ParseMediaType(h.Header.Get("Content-Type"))
			if err != nil || !allow.allows(mediaType) {
				return errors.New(allow.Message)
			}
			f.files = append(f.files, pending{field: rule.Field, header: h, contentType: mediaType})
		}
	}

	var unexpected []string
	for field := range f.form.File {
		if !declared[field] {
			unexpected = append(unexpected, field)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("Unexpected field: %s", unexpected[0])
	}
	return nil
}

// Value returns the first value of a text field.
func (f *Form) Value(field string) string {
	if v := f.form.Value[field]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns every value of a text field.
func (f *Form) Values(field string) []string {
	return f.form.Value[field]
}

// HasFile reports whether at least one file was sent for field.
func (f *Form) HasFile(field string) bool {
	return len(f.form.File[field]) > 0
}

// Close removes temporary files the multipart parser spilled to disk.
func (f *Form) Close() {
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}

// Result maps each file field to the relative paths written for it.
type Result map[string][]string

// Path returns the first stored path of field, or "".
func (r Result) Path(field string) string {
	if p := r[field]; len(p) > 0 {
		return p[0]
	}
	return ""
}

// Store writes every accepted file to the blob store. If any write fails the
// files already written are removed.
func (f *Form) Store(ctx context.Context) (Result, error) {
	res := Result{}
	for _, p := range f.files {
		name := f.u.newName(p.header.Filename)
		if err := f.u.put(ctx, name, p); err != nil {
			f.u.Discard(ctx, res)
			return nil, err
		}
		res[p.field] = append(res[p.field], PathPrefix+name)
	}
	return res, nil
}

func (u *Uploader) put(ctx context.Context, name string, p pending) error {
	file, err := p.header.Open()
	if err != nil {
		return fmt.Errorf("open upload %s: %w", p.header.Filename, err)
	}
	defer file.Close()
	return u.blobs.Put(ctx, name, file, p.contentType)
}

// Discard removes every blob in res, logging failures.
func (u *Uploader) Discard(ctx context.Context, res Result) {
	for _, paths := range res {
		for _, p := range paths {
			u.Remove(ctx, p)
		}
	}
}

// Remove deletes the blob behind a stored relative path. Empty paths,
// foreign paths and missing blobs are ignored.
func (u *Uploader) Remove(ctx context.Context, relPath string) {
	name, ok := NameFromPath(relPath)
	if !ok {
		return
	}
	if err := u.blobs.Remove(ctx, name); err != nil {
		zap.L().Warn("failed to remove blob", zap.String("path", relPath), zap.Error(err))
	}
}

// NameFromPath extracts the blob name from a stored relative path. Bare
// names, as written by older records, are accepted too.
func NameFromPath(relPath string) (string, bool) {
	name := strings.TrimPrefix(relPath, PathPrefix)
	if !blob.ValidName(name) {
		return "", false
	}
	return name, true
}
