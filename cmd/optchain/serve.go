package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"option-analytics-go/config"
	"option-analytics-go/internal/container"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		market  marketFlags
		addr    string
		systemd bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the chain CSV, re-analyse on change and serve snapshots over HTTP/websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.resolveConfig(func(c *config.AppConfig) {
				market.apply(cmd, c)
				if addr != "" {
					c.Server.Addr = addr
				}
				if cmd.Flags().Changed("systemd") {
					c.Server.SystemdNotify = systemd
				}
			})
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			c, err := container.New(cfg, log)
			if err != nil {
				return err
			}
			if err := c.Build(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := c.Start(ctx); err != nil {
				return err
			}
			log.Info("serving on " + c.Addr())
			<-ctx.Done()
			log.Info("收到退出信号，开始优雅退出")
			return c.Stop()
		},
	}
	market.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP 监听地址（覆盖 server.addr）")
	cmd.Flags().BoolVar(&systemd, "systemd", false, "向 systemd 发送 READY/STOPPING 通知")
	return cmd
}
