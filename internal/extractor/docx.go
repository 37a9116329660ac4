package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type docxContent struct {
	paragraphs []string
	tables     [][][]string
}

func (e *Extractor) extractDOCX(ctx context.Context, filePath string) (string, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer zr.Close()

	var (
		body   *zip.File
		images []*zip.File
	)
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
			body = f
		case strings.HasPrefix(f.Name, "word/media/"):
			switch strings.ToLower(path.Ext(f.Name)) {
			case ".png", ".jpg", ".jpeg":
				images = append(images, f)
			}
		}
	}
	if body == nil {
		return "", errors.New("failed to open DOCX: word/document.xml is missing")
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX body: %w", err)
	}
	content, err := parseDocumentXML(rc)
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("failed to parse DOCX body: %w", err)
	}

	var sb strings.Builder
	for _, p := range content.paragraphs {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	for i, table := range content.tables {
		sb.WriteString("\n")
		sb.WriteString(markdownTable(fmt.Sprintf("### Table %d Data", i+1), table))
	}
	text := sb.String()
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	if len(images) == 0 {
		return "", fmt.Errorf("%w in DOCX", ErrEmptyDocument)
	}

	// image-only document: OCR the embedded pictures
	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	var blocks []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := readZipFile(img)
		if err != nil {
			e.logger.Warn("Failed to read embedded image", zap.String("image", img.Name), zap.Error(err))
			continue
		}
		name := path.Base(img.Name)
		if t := e.recognize(ctx, data, name); t != "" {
			blocks = append(blocks, fmt.Sprintf("--- Text from %s ---\n%s", name, t))
		}
	}
	if len(blocks) == 0 {
		return NoReadableText, nil
	}
	return ocrHeader + "\n" + strings.Join(blocks, "\n\n"), nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseDocumentXML walks WordprocessingML collecting body paragraphs and top-level tables.
// Paragraphs inside table cells become cell text, not body paragraphs.
func parseDocumentXML(r io.Reader) (*docxContent, error) {
	dec := xml.NewDecoder(r)
	out := &docxContent{}

	var (
		para       strings.Builder
		inPara     bool
		inText     bool
		tableDepth int
		table      [][]string
		row        []string
		cell       strings.Builder
		cellParas  int
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
					cellParas = 0
				}
			case "p":
				inPara = true
				para.Reset()
			case "t":
				inText = true
			case "tab":
				if inPara {
					para.WriteString("\t")
				}
			case "br", "cr":
				if inPara {
					para.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText && inPara {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				if tableDepth > 0 {
					if cellParas > 0 {
						cell.WriteString(" ")
					}
					cell.WriteString(para.String())
					cellParas++
				} else if s := para.String(); strings.TrimSpace(s) != "" {
					out.paragraphs = append(out.paragraphs, s)
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tableDepth == 1 && len(row) > 0 {
					table = append(table, row)
				}
			case "tbl":
				if tableDepth == 1 && len(table) > 0 {
					out.tables = append(out.tables, table)
				}
				tableDepth--
			}
		}
	}
	return out, nil
}
