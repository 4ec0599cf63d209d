// Command sponsorctl runs sponsor imports and exports against the server's database.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	auditStore "sponsorship/internal/adapters/storage/audit"
	sponsorStore "sponsorship/internal/adapters/storage/sponsor"
	"sponsorship/internal/application/orchestrators"
	"sponsorship/internal/application/projections"
	"sponsorship/internal/bootstrap"
	"sponsorship/internal/config"
	auditDomain "sponsorship/internal/domain/audit"
	"sponsorship/internal/domain/mailmerge"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, config.Load).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	out     io.Writer
	load    func() (config.Config, error)
	cfg     config.Config
	dbPath  string
	verbose bool
}

// newRootCmd builds the command tree; load supplies configuration so tests can bypass the environment.
func newRootCmd(out io.Writer, load func() (config.Config, error)) *cobra.Command {
	c := &cli{out: out, load: load}

	root := &cobra.Command{
		Use:   "sponsorctl",
		Short: "Sponsor program maintenance",
		Long: `sponsorctl works on the same database and media store as the web server.

Settings come from SPONSORS_* environment variables and an optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if c.dbPath != "" {
				cfg.DBPath = c.dbPath
			}
			level := cfg.SlogLevel()
			if c.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			c.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "Database path (default: SPONSORS_DB_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(c.importCmd(), c.exportCmd(), c.archiveCmd(), c.recipientsCmd(), c.activityCmd())
	return root
}

// stores are the database-backed adapters a subcommand works with.
type stores struct {
	sponsors *sponsorStore.SQLiteStore
	audit    *auditStore.SQLiteStore
	close    func() error
}

func (c *cli) openStores(ctx context.Context) (stores, error) {
	db, err := bootstrap.OpenDB(ctx, c.cfg, nil)
	if err != nil {
		return stores{}, err
	}
	return stores{
		sponsors: sponsorStore.NewSQLiteStore(db),
		audit:    auditStore.NewSQLiteStore(db),
		close:    db.Close,
	}, nil
}

// record saves an audit event attributed to the CLI. Failures are logged only.
func (st stores) record(ctx context.Context, category auditDomain.Category, action auditDomain.Action, desc string) {
	e := auditDomain.NewEvent(uuid.NewString(), time.Now(), "cli", category, action).WithDescription(desc)
	if err := st.audit.Save(ctx, e); err != nil {
		slog.Error("audit_save_failed", "action", action, "error", err)
	}
}

func (c *cli) importCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create or update levels, sponsors and benefits from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := c.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			res, err := orchestrators.ExecuteImportSponsors(cmd.Context(), orchestrators.ImportSponsorsInput{
				Reader: f,
				DryRun: dryRun,
			}, orchestrators.ImportSponsorsDeps{
				SponsorStore: st.sponsors,
				Now:          time.Now,
			})
			if err != nil {
				return err
			}

			verb := "imported"
			if res.DryRun {
				verb = "would import"
			}
			summary := fmt.Sprintf("%d levels, %d sponsors, %d benefits", res.Levels, res.Sponsors, res.Benefits)
			if !res.DryRun {
				st.record(cmd.Context(), auditDomain.CategoryImport, auditDomain.ActionImport, args[0]+": "+summary)
			}
			fmt.Fprintf(c.out, "%s %s\n", verb, summary)
			for _, e := range res.Errors {
				fmt.Fprintf(c.out, "  %s: %s\n", e.Item, e.Message)
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d items rejected", len(res.Errors))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without writing")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the plaintext sponsor directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			res, err := projections.QuerySponsorDirectory(cmd.Context(), projections.SponsorDirectoryDeps{SponsorStore: st.sponsors})
			if err != nil {
				return err
			}
			st.record(cmd.Context(), auditDomain.CategoryExport, auditDomain.ActionExport, fmt.Sprintf("sponsor directory, %d sponsors", len(res.Entries)))
			if output == "" || output == "-" {
				_, err = io.WriteString(c.out, res.Text)
				return err
			}
			if err := os.WriteFile(output, []byte(res.Text), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %d sponsors to %s\n", len(res.Entries), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func (c *cli) archiveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Package sponsor logos and advertisements into a zip file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()
			files, err := bootstrap.NewFileSystem(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}

			res, err := projections.QueryBenefitArchive(cmd.Context(), projections.ArchiveQuery{}, projections.BenefitArchiveDeps{
				SponsorStore: st.sponsors,
				Files:        files,
			})
			if err != nil {
				return err
			}
			st.record(cmd.Context(), auditDomain.CategoryExport, auditDomain.ActionDownload, fmt.Sprintf("logo archive, %d files", len(res.Entries)))
			if output == "" {
				output = projections.ArchiveFileName(c.cfg.ConferencePrefix)
			}
			if err := os.WriteFile(output, res.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "wrote %d files to %s\n", len(res.Entries), output)
			for _, src := range res.Skipped {
				fmt.Fprintf(c.out, "  skipped missing %s\n", src)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <prefix>_sponsorlogos.zip)")
	return cmd
}

func (c *cli) recipientsCmd() *cobra.Command {
	var ids []string
	cmd := &cobra.Command{
		Use:   "recipients",
		Short: "Print the addresses a sponsor email would reach",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			sponsors, err := st.sponsors.List(cmd.Context(), sponsorStore.ListFilter{IDs: ids, ActiveOnly: true})
			if err != nil {
				return err
			}
			if len(sponsors) == 0 {
				return orchestrators.ErrNoSponsorsSelected
			}
			fmt.Fprintln(c.out, strings.Join(mailmerge.ResolveRecipients(sponsors...), ", "))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Sponsor IDs (comma-separated)")
	cmd.MarkFlagRequired("ids")
	return cmd
}

func (c *cli) activityCmd() *cobra.Command {
	var (
		limit    int
		category string
	)
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent sends, exports and imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			events, err := st.audit.List(cmd.Context(), auditStore.Filter{Category: auditDomain.Category(category)}, limit)
			if err != nil {
				return err
			}
			for _, e := range events {
				fmt.Fprintf(c.out, "%s  %-8s %s/%s  %s\n", e.Timestamp.Format(time.RFC3339), e.Actor, e.Category, e.Action, e.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events")
	cmd.Flags().StringVar(&category, "category", "", "Only show email, export or import events")
	return cmd
}
