package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/ledctl/internal/client"
	"github.com/danmuck/ledctl/internal/render"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	addr      string
	transport string
	timeout   time.Duration
	height    int
	width     int
}

func (o *sendOptions) sender() (*client.Sender, error) {
	return client.New(client.Config{
		Addr:         o.addr,
		Transport:    strings.ToLower(strings.TrimSpace(o.transport)),
		DialTimeout:  o.timeout,
		WriteTimeout: o.timeout,
	})
}

func newSendCommand() *cobra.Command {
	opts := &sendOptions{}
	def := client.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one frame to a display server",
	}
	cmd.PersistentFlags().StringVarP(&opts.addr, "addr", "a", def.Addr, "Server address")
	cmd.PersistentFlags().StringVarP(&opts.transport, "transport", "t", def.Transport, "tcp or udp")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", def.DialTimeout, "Dial and write timeout")

	cmd.AddCommand(&cobra.Command{
		Use:   "brightness <0-255>",
		Short: "Set the panel brightness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseByte("brightness", args[0])
			if err != nil {
				return err
			}
			s, err := opts.sender()
			if err != nil {
				return err
			}
			return s.SetBrightness(cmd.Context(), level)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "priority <0-255>",
		Short: "Set this client's stream priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parseByte("priority", args[0])
			if err != nil {
				return err
			}
			s, err := opts.sender()
			if err != nil {
				return err
			}
			return s.SetPriority(cmd.Context(), p)
		},
	})

	image := &cobra.Command{
		Use:   "image <file>",
		Short: "Send a PNG, JPEG, or GIF sized to the panel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pixels, err := render.LoadPattern(args[0], opts.height, opts.width)
			if err != nil {
				return err
			}
			s, err := opts.sender()
			if err != nil {
				return err
			}
			return s.Image(cmd.Context(), uint16(opts.height), uint16(opts.width), pixels)
		},
	}

	fill := &cobra.Command{
		Use:   "fill <r> <g> <b>",
		Short: "Send a solid color image",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rgb [3]uint8
			for i, name := range []string{"red", "green", "blue"} {
				v, err := parseByte(name, args[i])
				if err != nil {
					return err
				}
				rgb[i] = v
			}
			s, err := opts.sender()
			if err != nil {
				return err
			}
			pixels := client.Fill(opts.height, opts.width, rgb[0], rgb[1], rgb[2])
			return s.Image(cmd.Context(), uint16(opts.height), uint16(opts.width), pixels)
		},
	}

	m := render.DefaultMatrixConfig()
	for _, c := range []*cobra.Command{image, fill} {
		c.Flags().IntVar(&opts.height, "height", m.Height, "Image height in pixels")
		c.Flags().IntVar(&opts.width, "width", m.Width, "Image width in pixels")
		cmd.AddCommand(c)
	}
	return cmd
}

func parseByte(name, raw string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%s must be 0-255: %q", name, raw)
	}
	return uint8(v), nil
}
