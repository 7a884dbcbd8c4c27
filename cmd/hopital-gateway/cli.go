package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/app"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/config"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/appointment"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/diagnostic"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/signalement"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/user"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/board"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/cache"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/lifecycle"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
)

// cliEnv is what every terminal command needs: the backend client and the
// session persisted in the token file.
type cliEnv struct {
	cfg      *config.Config
	logger   zerolog.Logger
	client   *apiclient.Client
	sessions *session.Manager
	store    *session.FileStore
}

func newCLIEnv(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := zerolog.WarnLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

	client, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
		Logger:  logger,
	}, nil)
	if err != nil {
		return nil, err
	}
	store := session.NewFileStore(cfg.TokenFile)
	return &cliEnv{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		sessions: session.NewManager(store, user.NewAuthenticator(client), cfg.SessionTTL, logger),
		store:    store,
	}, nil
}

// workspace restores the saved session and opens its dashboards.
func (env *cliEnv) workspace(ctx context.Context) (*app.Workspace, error) {
	s, err := env.sessions.Hydrate(ctx, "")
	if errors.Is(err, session.ErrNoSession) {
		return nil, errors.New("not logged in, run `hopital-gateway login` first")
	}
	if err != nil {
		return nil, err
	}
	return app.NewWorkspace(app.Deps{
		Client:       env.client,
		Validator:    validation.New(),
		Shared:       cache.NewNoop(),
		ReferenceTTL: env.cfg.ReferenceTTL,
		Logger:       env.logger,
	}, s), nil
}

func loginCmd() *cobra.Command {
	var creds session.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in against the backend and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			if creds.Password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Mot de passe: ")
				creds.Password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
			}
			if err := validation.New().Struct(&creds); err != nil {
				return err
			}
			s, err := env.sessions.Login(cmd.Context(), creds)
			switch {
			case errors.Is(err, session.ErrInvalidCredentials):
				return errors.New(app.MsgInvalidCredentials)
			case errors.Is(err, user.ErrInactive):
				return errors.New(app.MsgAccountInactive)
			case err != nil:
				return errors.New(apiclient.UserMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connecté en tant que %s (%s)\n", displayName(s), s.Actor.Role.Label())
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password, prompted when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the saved token",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			if err := env.sessions.Logout(cmd.Context(), ""); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Déconnecté.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			s, err := env.sessions.Hydrate(cmd.Context(), "")
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "Non connecté.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s), CIN %s\n", displayName(s), s.Actor.Role.Label(), s.Actor.CIN)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var (
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:       "list <entity>",
		Short:     "List the records of one dashboard",
		Args:      cobra.ExactArgs(1),
		ValidArgs: entityNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := lookupEntity(ws, args[0])
			if err != nil {
				return err
			}
			if !e.visible() {
				return fmt.Errorf("le rôle %s n'a pas accès aux %s", ws.Actor.Role.Label(), e.name)
			}
			if err := e.load(cmd.Context()); err != nil {
				return errors.New(apiclient.UserMessage(err))
			}
			// First render starts reference lookups; render again once settled.
			e.rows(query)
			ws.Refs.Wait()
			rows := e.rows(query)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return printRows(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "free-text filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rows as JSON")
	return cmd
}

func transitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition <entity> <id> <statut>",
		Short: "Change the status of one record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}
			env, err := newCLIEnv(cmd)
			if err != nil {
				return err
			}
			ws, err := env.workspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			e, err := lookupEntity(ws, args[0])
			if err != nil {
				return err
			}
			if err := e.load(cmd.Context()); err != nil {
				return errors.New(apiclient.UserMessage(err))
			}
			badge, err := e.transition(cmd.Context(), id, args[2])
			if err != nil {
				return errors.New(errorText(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d: %s\n", e.name, id, badge)
			return nil
		},
	}
}

// row is the terminal rendering of a board row.
type row struct {
	ID         int64             `json:"id"`
	Badge      string            `json:"statut"`
	References map[string]string `json:"references,omitempty"`
	Detail     string            `json:"detail"`
	Actions    []string          `json:"actions"`
}

// entity adapts one typed board to the terminal.
type entity struct {
	name       string
	visible    func() bool
	load       func(ctx context.Context) error
	rows       func(query string) []row
	transition func(ctx context.Context, id int64, status string) (string, error)
}

func boardEntity[T lifecycle.Stateful[T, S], S ~string](name string, b *board.Board[T, S], detail func(T) string) entity {
	return entity{
		name:    name,
		visible: b.Visible,
		load:    b.Load,
		rows: func(query string) []row {
			out := []row{}
			for _, r := range b.Rows(query) {
				out = append(out, toRow(r, detail))
			}
			return out
		},
		transition: func(ctx context.Context, id int64, status string) (string, error) {
			r, err := b.Transition(ctx, id, S(status))
			if err != nil {
				return "", err
			}
			return r.Badge, nil
		},
	}
}

func toRow[T lifecycle.Stateful[T, S], S ~string](r board.Row[T, S], detail func(T) string) row {
	out := row{ID: r.Record.Key(), Badge: r.Badge, Detail: detail(r.Record), Actions: []string{}}
	if len(r.References) > 0 {
		out.References = make(map[string]string, len(r.References))
		for field, ref := range r.References {
			out.References[field] = ref.Display()
		}
	}
	for _, a := range r.Actions {
		out.Actions = append(out.Actions, a.Label)
	}
	return out
}

var entityAliases = map[string]string{
	"rendez-vous":  appointment.Entity,
	"rdv":          appointment.Entity,
	"diagnostic":   diagnostic.Entity,
	"diagnostics":  diagnostic.Entity,
	"signalement":  signalement.Entity,
	"signalements": signalement.Entity,
}

func entityNames() []string {
	return []string{appointment.Entity, diagnostic.Entity, signalement.Entity}
}

func lookupEntity(ws *app.Workspace, name string) (entity, error) {
	switch entityAliases[strings.ToLower(name)] {
	case appointment.Entity:
		return boardEntity(appointment.Entity, ws.Appointments.Board, func(a appointment.Appointment) string {
			return a.DateRV + " " + a.Motif
		}), nil
	case diagnostic.Entity:
		return boardEntity(diagnostic.Entity, ws.Diagnostics.Board, func(d diagnostic.Diagnostic) string {
			return d.DateD + " " + d.Description
		}), nil
	case signalement.Entity:
		return boardEntity(signalement.Entity, ws.Signalements.Board, func(s signalement.Signalement) string {
			return fmt.Sprintf("%s x%d %s", s.Type.Label(), s.Quantite, s.Description)
		}), nil
	}
	return entity{}, fmt.Errorf("unknown entity %q, expected one of %s", name, strings.Join(entityNames(), ", "))
}

func printRows(w io.Writer, rows []row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUT\tREFERENCES\tDETAIL\tACTIONS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Badge, formatRefs(r.References), r.Detail, strings.Join(r.Actions, ", "))
	}
	return tw.Flush()
}

func formatRefs(refs map[string]string) string {
	fields := make([]string, 0, len(refs))
	for f := range refs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+"="+refs[f])
	}
	return strings.Join(parts, " ")
}

func errorText(err error) string {
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return te.Message()
	}
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		return fe.First()
	}
	return apiclient.UserMessage(err)
}

func displayName(s *session.Session) string {
	if s.Actor.Name != "" {
		return s.Actor.Name
	}
	return s.Actor.CIN
}

// readPassword reads without echo when in is a terminal, else one line of
// piped input.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
