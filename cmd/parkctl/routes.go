package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func routesCommand(a *app) *cobra.Command {
	routes := &cobra.Command{
		Use:   "routes",
		Short: "Walking route maintenance",
	}
	routes.AddCommand(&cobra.Command{
		Use:   "delete ID...",
		Short: "Delete routes and the issues reported on them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := a.open()
			if err != nil {
				return err
			}
			res, err := st.DeleteRoutes(cmd.Context(), ids)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		},
	})
	return routes
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid route id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func countsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print the row count of every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			c, err := st.Counts(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(c)
		},
	}
}
