package main

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/ckan-mcp/pkg/portal"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var portalsCmd = &cobra.Command{
	Use:   "portals",
	Short: "Inspect the known portal table",
}

var portalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured portals and their URL templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		reg, err := portal.Load(cfg.PortalsFile)
		if err != nil {
			return err
		}
		portals := reg.Portals()
		if len(portals) == 0 {
			pterm.Info.Println("No portals configured.")
			return nil
		}
		return pterm.DefaultTable.WithHasHeader().WithData(portalRows(reg, portals)).Render()
	},
}

var portalsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every portal with status_show",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		deps, err := newDeps(cfg, logger)
		if err != nil {
			return err
		}

		spinner, _ := pterm.DefaultSpinner.Start("Checking portals...")
		results := portal.NewChecker(deps.Portals, deps.Client, logger, 0).CheckAll(cmd.Context())
		if spinner != nil {
			_ = spinner.Stop()
		}

		var failed int
		for _, r := range results {
			if !r.OK {
				failed++
			}
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(checkRows(results)).Render(); err != nil {
			return err
		}
		if failed > 0 {
			pterm.Warning.Printfln("%d of %d portals unreachable", failed, len(results))
			return nil
		}
		pterm.Success.Printfln("All %d portals online", len(results))
		return nil
	},
}

func init() {
	portalsCmd.AddCommand(portalsListCmd, portalsCheckCmd)
}

func portalRows(reg *portal.Registry, portals []portal.Portal) pterm.TableData {
	rows := pterm.TableData{{"Name", "API URL", "Aliases", "Dataset page"}}
	for _, p := range portals {
		rows = append(rows, []string{
			p.Name,
			p.APIURL,
			strings.Join(p.Aliases, ", "),
			reg.DatasetURL(p.APIURL, "{id}", "{name}"),
		})
	}
	return rows
}

func checkRows(results []portal.Result) pterm.TableData {
	rows := pterm.TableData{{"Portal", "URL", "Status", "CKAN", "Time"}}
	for _, r := range results {
		status := pterm.Green("online")
		if !r.OK {
			status = pterm.Red("offline: " + r.Error)
		}
		rows = append(rows, []string{
			r.Portal,
			r.URL,
			status,
			r.Version,
			fmt.Sprintf("%dms", r.Duration.Milliseconds()),
		})
	}
	return rows
}
