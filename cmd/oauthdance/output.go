package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/getlantern/oauthdance/dance"
)

func writeToken(w io.Writer, format string, token *dance.AccessToken) error {
	var (
		out []byte
		err error
	)
	switch format {
	case "json":
		out, err = json.MarshalIndent(token, "", "  ")
		out = append(out, '\n')
	case "yaml":
		out, err = yaml.Marshal(token)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
