package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/picatz/openai-relay/internal/logger"
	"github.com/segmentio/ksuid"
)

// Upload is a file received from a client, to be added to a vector store.
type Upload struct {
	Filename      string
	ContentType   string
	Body          io.Reader
	VectorStoreID string
}

type UploadResult struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// DefaultExtension is used when neither the filename nor the content type
// identify the kind of document.
const DefaultExtension = ".pdf"

// contentTypeExtensions maps content type fragments to the extensions file
// search accepts. Order matters: "wordprocessingml" must be checked before
// the more general "msword" family.
var contentTypeExtensions = []struct {
	fragment  string
	extension string
}{
	{"pdf", ".pdf"},
	{"wordprocessingml", ".docx"},
	{"msword", ".doc"},
	{"text/plain", ".txt"},
	{"csv", ".csv"},
	{"json", ".json"},
	{"html", ".html"},
	{"markdown", ".md"},
}

// FileExtension picks the extension for an uploaded file: the one of the
// original filename when it looks like an extension, otherwise one inferred
// from the content type, otherwise [DefaultExtension].
func FileExtension(filename, contentType string) string {
	if ext := filenameExtension(filename); ext != "" {
		return ext
	}

	contentType = strings.ToLower(contentType)
	for _, m := range contentTypeExtensions {
		if strings.Contains(contentType, m.fragment) {
			return m.extension
		}
	}
	return DefaultExtension
}

var (
	validExtension      = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// maxBaseNameBytes bounds the sanitized base name so the temporary name stays
// well below the 255 byte limit of common filesystems.
const maxBaseNameBytes = 100

// baseName strips any directory components, using either separator, and
// surrounding whitespace.
func baseName(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	return strings.TrimSpace(filename)
}

// filenameExtension returns the lower-cased extension of filename, or "" if
// what follows the last dot is not a plausible extension.
func filenameExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(baseName(filename)))
	if !validExtension.MatchString(ext) {
		return ""
	}
	return ext
}

// SanitizeFilename reduces filename to a safe base name without extension:
// directory components are dropped, runs of characters outside
// [A-Za-z0-9._-] become "_", leading dots are removed so the result can
// never be "." or "..", and the result is at most 100 bytes.
func SanitizeFilename(filename string) string {
	name := baseName(filename)
	if filenameExtension(name) != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || strings.Trim(name, "_") == "" {
		return "upload"
	}
	// Only ASCII remains, so any byte offset is a rune boundary.
	if len(name) > maxBaseNameBytes {
		name = name[:maxBaseNameBytes]
	}
	return name
}

// TempFileName returns a collision resistant name for a temporary copy of
// an upload: a fresh KSUID, the sanitized name and the chosen extension.
func TempFileName(filename, contentType string) string {
	return ksuid.New().String() + "_" + SanitizeFilename(filename) + FileExtension(filename, contentType)
}

// sniffContentType fills in a missing or generic content type from the
// first bytes of the upload. The returned reader yields the whole body.
func sniffContentType(contentType string, body io.Reader) (string, io.Reader) {
	if contentType != "" && !strings.HasPrefix(contentType, "application/octet-stream") {
		return contentType, body
	}

	br := bufio.NewReaderSize(body, 512)
	head, _ := br.Peek(512)
	if len(head) == 0 {
		return contentType, br
	}
	return http.DetectContentType(head), br
}

// UploadFile copies upload to a temporary file, sends it to provider file
// storage and attaches the stored file to the vector store. The temporary
// file is removed on every path out of this method.
//
// If attaching fails, the stored file is left behind on the provider side.
func (s *Service) UploadFile(ctx context.Context, upload Upload) (result *UploadResult, err error) {
	if upload.VectorStoreID == "" {
		return nil, invalidf("vector_store_id is required")
	}
	if upload.Body == nil {
		return nil, invalidf("file is required")
	}

	contentType, body := sniffContentType(upload.ContentType, upload.Body)
	ext := FileExtension(upload.Filename, contentType)
	providerName := SanitizeFilename(upload.Filename) + ext

	tmpPath := filepath.Join(s.tempDir, TempFileName(upload.Filename, contentType))

	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if cerr := removeTemp(tmp); cerr != nil {
			s.logger.ErrorContext(ctx, "failed to remove temporary file", "path", tmp.Name(), logger.Err(cerr))
			err = multierror.Append(err, cerr).ErrorOrNil()
			result = nil
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind temporary file: %w", err)
	}

	s.logger.DebugContext(ctx, "uploading file",
		"filename", providerName,
		"content_type", contentType,
		"path", tmp.Name(),
	)

	file, err := s.vectorStores.UploadFile(ctx, providerName, tmp, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	vsFile, err := s.vectorStores.AttachFile(ctx, upload.VectorStoreID, file.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "uploaded file was not attached to vector store",
			"file_id", file.ID,
			"vector_store_id", upload.VectorStoreID,
			logger.Err(err),
		)
		return nil, fmt.Errorf("failed to attach file %s to vector store: %w", file.ID, err)
	}

	return &UploadResult{
		FileID:   file.ID,
		Filename: upload.Filename,
		Status:   vsFile.Status,
	}, nil
}

// removeTemp closes and deletes f. Closing an already closed file is not
// an error here.
func removeTemp(f *os.File) error {
	var result error
	if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		result = multierror.Append(result, err)
	}
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		result = multierror.Append(result, err)
	}
	return result
}
