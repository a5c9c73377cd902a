package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teastall/teastall/app/repositories"
	"github.com/teastall/teastall/app/routes"
	"github.com/teastall/teastall/internal/server"
	"github.com/teastall/teastall/pkg/router"
	"github.com/teastall/teastall/pkg/sse"
	"github.com/teastall/teastall/pkg/storage"
)

// teastall serve: start the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Start(ctx)
	},
}

// teastall route:list: print all registered routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRoutes(os.Stdout)
	},
}

func printRoutes(out io.Writer) error {
	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Stores: repositories.NewMemoryStores(),
		Hub:    sse.NewHub(sse.DefaultBuffer),
		Disk:   storage.NewLocalDisk(os.TempDir(), ""),
	})

	infos := r.Routes()
	if len(infos) == 0 {
		fmt.Fprintln(out, "No named routes registered.")
		return nil
	}

	// Sort by path then method.
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Path != infos[j].Path {
			return infos[i].Path < infos[j].Path
		}
		return infos[i].Method < infos[j].Method
	})

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
	}
	return w.Flush()
}
