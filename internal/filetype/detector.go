package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info contains detected file type information for a library entry.
type Info struct {
	MIMEType    string
	Extension   string
	IsPDF       bool
	IsText      bool
	Description string
}

// Detector identifies file types by magic bytes, not filename.
type Detector struct{}

// New creates a new file type detector.
func New() *Detector {
	return &Detector{}
}

// Detect inspects the file at filePath and classifies it.
func (d *Detector) Detect(filePath string) (*Info, error) {
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	info := &Info{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	switch {
	case info.MIMEType == "application/pdf":
		info.IsPDF = true
		info.Description = "PDF document"
	case strings.HasPrefix(info.MIMEType, "text/"):
		info.IsText = true
		info.Description = "Plain text file"
	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}

	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", filePath).Msg("detected file type")
	return info, nil
}

// IsPDF reports whether the file at filePath is really a PDF.
func (d *Detector) IsPDF(filePath string) (bool, error) {
	info, err := d.Detect(filePath)
	if err != nil {
		return false, err
	}
	return info.IsPDF, nil
}
