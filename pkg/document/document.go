// Package document holds the document a discovery session is about: the
// title and description both parties see, and the confidential content only
// the responder sees.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/conciliate/pkg/transcript"
)

type Document struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	// Content is the confidential body. If empty, ContentFile is read instead.
	Content     string `yaml:"content,omitempty" json:"-"`
	ContentFile string `yaml:"content_file,omitempty" json:"-"`
}

// Load reads a document YAML file. A relative content_file is resolved
// against the directory of path.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read document %s", path)
	}

	d, err := Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse document %s", path)
	}

	if d.Content == "" && d.ContentFile != "" {
		contentPath := d.ContentFile
		if !filepath.IsAbs(contentPath) {
			contentPath = filepath.Join(filepath.Dir(path), contentPath)
		}
		c, err := os.ReadFile(contentPath)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read document content %s", contentPath)
		}
		d.Content = string(c)
	}

	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid document %s", path)
	}
	return d, nil
}

func Parse(b []byte) (*Document, error) {
	d := &Document{}
	if err := yaml.Unmarshal(b, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return errors.New("document has no title")
	}
	if strings.TrimSpace(d.Content) == "" {
		return errors.New("document has no content")
	}
	return nil
}

// Greeting is the opening responder turn of a fresh session.
func (d *Document) Greeting() transcript.Turn {
	return transcript.NewResponderTurn(fmt.Sprintf(
		"Welcome to the %s session! I am ready to answer questions about this invention with the following description\n\n%s",
		d.Title, d.Description,
	))
}
