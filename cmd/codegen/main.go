package main

import (
	"bytes"
	"context"
	"go/format"
	"log"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/urfave/cli/v3"
)

const (
	typesKey  = "types"
	outputKey = "out"
)

func main() {
	cmd := &cli.Command{
		Name:  "generate",
		Usage: "Generate typed watch helpers for weft",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  typesKey,
				Usage: "Comma-separated list of value types to generate helpers for",
				Value: "bool,int,int64,uint64,float64,string",
			},
			&cli.StringFlag{
				Name:  outputKey,
				Usage: "Output file",
				Value: "weft/typed.go",
			},
		},
		Action: generate,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type helper struct {
	Type    string // Go type name, e.g. "int64"
	Name    string // helper suffix, e.g. "Int64"
	Article string // "a" or "an" for the doc comment
}

var helperTmpl = template.Must(template.New("typed").Parse(`// Code generated by cmd/codegen. DO NOT EDIT.

package weft
{{range .}}
// Watch{{.Name}} creates a watcher over {{.Article}} {{.Type}}-valued getter.
func Watch{{.Name}}(sc *Scope, getter func() ({{.Type}}, error), cb func(newVal, oldVal {{.Type}}) error, opts WatchOptions) (*Watcher, error) {
	g := Getter(func() (any, error) { return getter() })
	var c Callback
	if cb != nil {
		c = func(newVal, oldVal any) error {
			n, _ := newVal.({{.Type}})
			o, _ := oldVal.({{.Type}})
			return cb(n, o)
		}
	}
	return NewWatcher(sc, g, c, opts)
}
{{end}}`))

func generate(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("Codegen for weft started")
	defer func() {
		log.Printf("Codegen for weft finished in %v", time.Since(start))
	}()

	var helpers []helper
	for _, t := range strings.Split(cmd.String(typesKey), ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		helpers = append(helpers, helper{
			Type:    t,
			Name:    exportName(t),
			Article: article(t),
		})
	}

	buf := &bytes.Buffer{}
	if err := helperTmpl.Execute(buf, helpers); err != nil {
		return err
	}
	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return err
	}
	return os.WriteFile(cmd.String(outputKey), formatted, 0644)
}

func exportName(t string) string {
	return strings.ToUpper(t[:1]) + t[1:]
}

func article(t string) string {
	// "u" reads as a consonant ("a uint64").
	switch t[0] {
	case 'a', 'e', 'i', 'o':
		return "an"
	}
	return "a"
}
