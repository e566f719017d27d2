package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"certforge/internal/metrics"
	"certforge/internal/workspace"
)

const (
	spreadsheetFileName = "data.xlsx"
	templateFileBase    = "template"
)

// ErrMalicious is returned by a Scanner when a file is flagged.
var ErrMalicious = errors.New("malicious file detected")

// Scanner checks uploaded content before it is written to disk.
type Scanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd 的 INSTREAM 命令扫描上传文件。
type ClamdScanner struct {
	client *clamd.Clamd
}

// NewClamdScanner returns nil when addr is empty so callers can skip scanning.
func NewClamdScanner(addr string) *ClamdScanner {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	return &ClamdScanner{client: clamd.NewClamd(addr)}
}

func (s *ClamdScanner) Scan(r io.Reader) error {
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := s.client.ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return fmt.Errorf("%w: %s", ErrMalicious, result.Description)
		}
	}
	return nil
}

type formUploads struct {
	spreadsheet *multipart.FileHeader
	template    *multipart.FileHeader
}

// readUploads 读取 excel/template 两个表单文件，任一缺失返回 false。
func readUploads(c *gin.Context) (formUploads, bool) {
	excel, errExcel := c.FormFile("excel")
	tpl, errTpl := c.FormFile("template")
	if errExcel != nil || errTpl != nil {
		return formUploads{}, false
	}
	return formUploads{spreadsheet: excel, template: tpl}, true
}

// stageUploads 扫描并保存两个上传文件到 ws，返回落盘路径。调用方需持有 ws。
func stageUploads(c *gin.Context, ws *workspace.Workspace, scanner Scanner, up formUploads) (spreadsheetPath, templatePath string, err error) {
	if err := ws.Clear(); err != nil {
		return "", "", err
	}

	spreadsheetPath = ws.Path(spreadsheetFileName)
	templatePath = ws.Path(templateFileBase + templateExt(up.template.Filename))

	for _, f := range []struct {
		field  string
		header *multipart.FileHeader
		dst    string
	}{
		{"excel", up.spreadsheet, spreadsheetPath},
		{"template", up.template, templatePath},
	} {
		if scanner != nil {
			if err := scanUpload(scanner, f.header); err != nil {
				return "", "", err
			}
		}
		if err := c.SaveUploadedFile(f.header, f.dst); err != nil {
			return "", "", fmt.Errorf("save %s upload: %w", f.field, err)
		}
		metrics.ObserveUpload(f.field, f.header.Size)
	}
	return spreadsheetPath, templatePath, nil
}

func scanUpload(scanner Scanner, header *multipart.FileHeader) error {
	r, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload %q: %w", header.Filename, err)
	}
	defer r.Close()

	if err := scanner.Scan(r); err != nil {
		if errors.Is(err, ErrMalicious) {
			return &uploadError{status: http.StatusBadRequest, msg: ErrMalicious.Error(), err: err}
		}
		return &uploadError{status: http.StatusInternalServerError, msg: "failed to scan file", err: err}
	}
	return nil
}

var templateExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true,
}

// templateExt keeps the client's image extension when it is a known raster
// format. The decoder sniffs content, so an unknown extension is dropped.
func templateExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if templateExts[ext] {
		return ext
	}
	return ""
}
