package api

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

const (
	yamlSeparator = "\n---\n"
)

// KindAccessor exposes the Kind field of a configuration document.
//
// The FileReader will compare the Kind field (accessed via MetaKind()) with
// the result of ExpectedKind() to ensure that the data we unmarshaled was
// meant for a struct of the correct type. That is, it prevents us from
// unmarshaling bytes meant for a Foo struct into a Bar struct.
type KindAccessor interface {
	// MetaKind is the kind actually read when unmarshaling from a file.
	MetaKind() string

	// ExpectedKind is the kind we expect to read while unmarshaling.
	ExpectedKind() string
}

// FileReader indexes the documents of a multi-document YAML file by kind
// so each can be parsed strictly into its matching type.
type FileReader struct {
	fs        afero.Fs
	fileName  string
	documents map[string][]byte
}

func NewFileReader(fs afero.Fs, fileName string) *FileReader {
	return &FileReader{
		fs:        fs,
		fileName:  fileName,
		documents: map[string][]byte{},
	}
}

// sliceYAML returns a slice of YAML documents from a file.
func (reader *FileReader) sliceYAML() ([][]byte, error) {
	content, err := afero.ReadFile(reader.fs, reader.fileName)
	if err != nil {
		return nil, err
	}
	return bytes.Split(content, []byte(yamlSeparator)), nil
}

func (reader *FileReader) Initialize(config KindAccessor) error {
	yamls, err := reader.sliceYAML()
	if err != nil {
		return fmt.Errorf("reading <%s>: %v", reader.fileName, err)
	}

	for _, document := range yamls {
		if err = yaml.Unmarshal(document, config); err != nil {
			return fmt.Errorf("error parsing <%s>:\n%s", reader.fileName, document)
		}
		reader.documents[config.MetaKind()] = document
	}
	return nil
}

func (reader *FileReader) Parse(config KindAccessor) error {
	if val, ok := reader.documents[config.ExpectedKind()]; ok {
		return ParseByteSlice(val, config)
	}
	return fmt.Errorf("could not find <%s> in configuration %s", config.ExpectedKind(), reader.fileName)
}

func ParseByteSlice(data []byte, config KindAccessor) error {
	return yaml.UnmarshalStrict(data, config)
}
