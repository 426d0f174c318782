package main

import (
	"github.com/urfave/cli/v2"
)

func (r *runner) configCommand(c *cli.Context) error {
	data, err := r.cfg.TOML()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}
