package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/meetsched/internal/domain/scheduling"
)

func newMeetingTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meeting-type",
		Aliases: []string{"mt"},
		Short:   "Manage meeting types",
	}
	cmd.AddCommand(newMeetingTypeCreateCmd())
	cmd.AddCommand(newMeetingTypeListCmd())
	return cmd
}

func newMeetingTypeCreateCmd() *cobra.Command {
	var (
		ownerEmail, title, description, tz string
		minutes                            int
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a meeting type for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.store.Owners.ByEmail(ctx, ownerEmail)
			if err != nil {
				return fmt.Errorf("owner %s: %w", ownerEmail, err)
			}
			mt, err := a.store.MeetingTypes.Create(ctx, scheduling.MeetingType{
				OwnerID:         o.ID,
				Title:           title,
				Description:     description,
				DurationMinutes: minutes,
				Timezone:        tz,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created meeting type %s\n", mt.ID)
			return nil
		},
	}

	c.Flags().StringVar(&ownerEmail, "owner", "", "owner email")
	c.Flags().StringVar(&title, "title", "", "title shown to recipients")
	c.Flags().StringVar(&description, "description", "", "optional description")
	c.Flags().IntVar(&minutes, "duration", 30, "duration in minutes")
	c.Flags().StringVar(&tz, "timezone", "UTC", "IANA timezone used in notifications")
	_ = c.MarkFlagRequired("owner")
	_ = c.MarkFlagRequired("title")
	return c
}

func newMeetingTypeListCmd() *cobra.Command {
	var ownerEmail string

	c := &cobra.Command{
		Use:   "list",
		Short: "List an owner's meeting types",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.store.Owners.ByEmail(ctx, ownerEmail)
			if err != nil {
				return fmt.Errorf("owner %s: %w", ownerEmail, err)
			}
			mts, err := a.store.MeetingTypes.ListByOwner(ctx, o.ID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMINUTES\tTIMEZONE")
			for _, mt := range mts {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", mt.ID, mt.Title, mt.DurationMinutes, mt.Timezone)
			}
			return w.Flush()
		},
	}
	c.Flags().StringVar(&ownerEmail, "owner", "", "owner email")
	_ = c.MarkFlagRequired("owner")
	return c
}
