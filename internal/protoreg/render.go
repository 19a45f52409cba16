package protoreg

import (
	"io"
	"os"
	"path"

	"github.com/jhump/protoreflect/v2/protoprint"
)

// Print writes the .proto source of the registry to w.
func Print(r *Registry, w io.Writer) error {
	pp := protoprint.Printer{}
	return pp.PrintProtoFile(r.File(), w)
}

// Render writes the .proto source of the registry below outDir, at the path
// derived from its package.
func Render(r *Registry, outDir string) (string, error) {
	fp := path.Join(outDir, r.File().Path())
	if err := os.MkdirAll(path.Dir(fp), 0755); err != nil {
		return "", err
	}
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := Print(r, f); err != nil {
		return "", err
	}
	return fp, f.Close()
}
