package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"

	// Packages
	endpoint "github.com/mutablelogic/go-httpqueue/pkg/endpoint"
	pg "github.com/mutablelogic/go-httpqueue/pkg/pg"
	queue "github.com/mutablelogic/go-httpqueue/pkg/queue"
	httphandler "github.com/mutablelogic/go-httpqueue/pkg/queue/httphandler"
	version "github.com/mutablelogic/go-httpqueue/pkg/version"
	httpserver "github.com/mutablelogic/go-server/pkg/httpserver"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServerCommands struct {
	RunServer RunServer `cmd:"" name:"run" help:"Run server." group:"SERVER"`
}

type RunServer struct {
	URL       string `arg:"" name:"url" help:"Database URL" default:""`
	Namespace string `name:"namespace" env:"HTTPQUEUE_NAMESPACE" help:"Queue namespace" default:"httpqueue"`

	// Postgres options
	PG struct {
		User     string `name:"user" env:"PG_USER" help:"Database user"`
		Password string `name:"password" env:"PG_PASSWORD" help:"Database password"`
	} `embed:"" prefix:"pg."`

	// TLS server options
	TLS struct {
		ServerName string `name:"name" help:"TLS server name"`
		CertFile   string `name:"cert" help:"TLS certificate file"`
		KeyFile    string `name:"key" help:"TLS key file"`
	} `embed:"" prefix:"tls."`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunServer) Run(ctx *Globals) error {
	opts := []pg.Opt{
		pg.WithURL(cmd.URL),
		pg.WithApplicationName(version.ExecName()),
	}
	if cmd.PG.User != "" || cmd.PG.Password != "" {
		opts = append(opts, pg.WithCredentials(cmd.PG.User, cmd.PG.Password))
	}
	if ctx.Debug {
		opts = append(opts, pg.WithTrace(func(ctx context.Context, query string, args any, err error) {
			fmt.Println("PG TRACE:", query, args, err)
		}))
	}

	// Create a pool connection
	conn, err := pg.NewPool(ctx.ctx, opts...)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Ping the database
	if err := conn.Ping(ctx.ctx); err != nil {
		return err
	}

	// Create the manager, which also creates the schema objects
	manager, err := queue.New(ctx.ctx, conn, cmd.Namespace)
	if err != nil {
		return err
	}

	// Register the dispatcher and metrics handler
	router := http.NewServeMux()
	registry := endpoint.NewRegistry(manager, 0)
	httphandler.Register(router, ctx.HTTP.Prefix, manager, registry)

	// Create a TLS config
	var tlsconfig *tls.Config
	if cmd.TLS.CertFile != "" || cmd.TLS.KeyFile != "" {
		tlsconfig, err = httpserver.TLSConfig(cmd.TLS.ServerName, true, cmd.TLS.CertFile, cmd.TLS.KeyFile)
		if err != nil {
			return err
		}
	}

	// Create a HTTP server
	server, err := httpserver.New(ctx.HTTP.Addr, router, tlsconfig)
	if err != nil {
		return err
	}

	// Serve until the context is cancelled
	fmt.Println(version.ExecName(), version.Version())
	fmt.Println("...listening on", ctx.HTTP.Addr+ctx.HTTP.Prefix)
	if err := server.Run(ctx.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	// Terminated message
	fmt.Println(version.ExecName(), "terminated")
	return nil
}
