// Package cli implements todoctl, the command-line client of the todo API.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Novip1906/todo-api/internal/client"
	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/session"
	"github.com/Novip1906/todo-api/pkg/logging"
)

var (
	errNotLoggedIn    = errors.New("not logged in, run `todoctl login`")
	errSessionExpired = errors.New("session expired, run `todoctl login`")
)

type env struct {
	profile *Profile
	client  *client.Client
	sess    *session.Session
	out     io.Writer
	log     *slog.Logger
	expired bool
}

// Run executes todoctl with args (without the program name).
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("todoctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	apiURL := fs.String("api", "", "Task API base URL (default from profile or TODO_API_URL)")
	authURL := fs.String("auth", "", "Identity provider base URL (default from profile or TODO_AUTH_URL)")
	timeout := fs.Duration("timeout", 10*time.Second, "Request timeout")
	verbose := fs.Bool("v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	profile, err := LoadProfile()
	if err != nil {
		return err
	}
	if *apiURL != "" {
		profile.APIURL = *apiURL
	}
	if *authURL != "" {
		profile.AuthURL = *authURL
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	e := newEnv(profile, *timeout, stdout, logging.NewLogger(stderr, level))

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs, stdout)
		return nil
	}
	cmd, rest := rest[0], rest[1:]

	switch cmd {
	case "signup":
		return e.signup(ctx, rest)
	case "login":
		return e.login(ctx, rest)
	case "logout":
		return e.logout(ctx)
	case "whoami":
		return e.whoami(ctx)
	case "list", "ls":
		return e.list(ctx, rest)
	case "add":
		return e.add(ctx, rest)
	case "edit":
		return e.edit(ctx, rest)
	case "done":
		return e.setCompleted(ctx, rest, true)
	case "undo":
		return e.setCompleted(ctx, rest, false)
	case "rm":
		return e.remove(ctx, rest)
	case "clear":
		return e.clear(ctx)
	case "search":
		return e.search(ctx, rest)
	case "tui":
		return e.tui(ctx)
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func newEnv(p *Profile, timeout time.Duration, out io.Writer, log *slog.Logger) *env {
	c := client.New(p.APIURL, p.AuthURL, timeout)
	c.SetToken(p.Token)

	e := &env{
		profile: p,
		client:  c,
		sess:    session.New(c, log),
		out:     out,
		log:     log,
	}

	e.sess.Subscribe(func(st session.State) {
		if st.View != session.ViewLogin || e.profile.Token == "" {
			return
		}
		e.expired = true
		e.profile.SignOut()
		if err := e.profile.Save(); err != nil {
			e.log.Warn("clear stored token", logging.Err(err))
		}
	})
	return e
}

// signIn publishes the stored identity to the session.
func (e *env) signIn() error {
	caller := e.profile.Caller()
	if caller == nil {
		return errNotLoggedIn
	}
	e.sess.SetIdentity(caller)
	return nil
}

// done turns a session failure into the message the user sees.
func (e *env) done(err error) error {
	if err == nil {
		return nil
	}
	if e.expired || errors.Is(err, client.ErrUnauthorized) {
		return errSessionExpired
	}
	return err
}

func (e *env) signup(ctx context.Context, args []string) error {
	email, password, err := credentials("todoctl signup", args)
	if err != nil {
		return err
	}

	acc, err := e.client.Signup(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created account %s (%s)\n", acc.Email, acc.Id)
	return nil
}

func (e *env) login(ctx context.Context, args []string) error {
	email, password, err := credentials("todoctl login", args)
	if err != nil {
		return err
	}

	token, err := e.client.Login(ctx, email, password)
	if errors.Is(err, client.ErrUnauthorized) {
		return errors.New("wrong email or password")
	}
	if err != nil {
		return err
	}

	caller, err := e.client.Whoami(ctx)
	if err != nil {
		return err
	}

	e.profile.Token = token
	e.profile.UserId = caller.Id
	e.profile.Email = caller.Email
	if err := e.profile.Save(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "logged in as %s\n", caller.Email)
	return nil
}

func (e *env) logout(ctx context.Context) error {
	if e.profile.Token == "" {
		fmt.Fprintln(e.out, "not logged in")
		return nil
	}

	if err := e.client.Logout(ctx); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		e.log.Warn("server logout failed", logging.Err(err))
	}
	e.profile.SignOut()
	if err := e.profile.Save(); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "logged out")
	return nil
}

func (e *env) whoami(ctx context.Context) error {
	if err := e.signIn(); err != nil {
		return err
	}

	caller, err := e.client.Whoami(ctx)
	if errors.Is(err, client.ErrUnauthorized) {
		e.sess.SetIdentity(nil)
	}
	if err != nil {
		return e.done(err)
	}
	fmt.Fprintf(e.out, "%s (%s)\n", caller.Email, caller.Id)
	return nil
}

func (e *env) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("todoctl list", flag.ContinueOnError)
	filter := fs.String("filter", string(models.FilterAll), "Filter tasks (all|completed|incomplete)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := models.ParseFilter(*filter)
	if err != nil {
		return err
	}

	if err := e.signIn(); err != nil {
		return err
	}
	if err := e.sess.SetFilter(ctx, f); err != nil {
		return e.done(err)
	}
	e.printTasks()
	return nil
}

func (e *env) add(ctx context.Context, args []string) error {
	if err := e.signIn(); err != nil {
		return err
	}
	if err := e.sess.Add(ctx, strings.Join(args, " ")); err != nil {
		return e.done(err)
	}
	e.printTasks()
	return nil
}

func (e *env) edit(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: todoctl edit <id> <text>")
	}
	if err := e.signIn(); err != nil {
		return err
	}
	if err := e.sess.Refresh(ctx); err != nil {
		return e.done(err)
	}

	id := args[0]
	task := findTask(e.sess.State().Tasks, id)
	if task == nil {
		return client.ErrNotFound
	}
	if err := e.sess.Edit(ctx, id, strings.Join(args[1:], " "), task.Completed); err != nil {
		return e.done(err)
	}
	e.printTasks()
	return nil
}

func (e *env) setCompleted(ctx context.Context, args []string, completed bool) error {
	if len(args) != 1 {
		return errors.New("usage: todoctl done|undo <id>")
	}
	if err := e.signIn(); err != nil {
		return err
	}
	if err := e.sess.Refresh(ctx); err != nil {
		return e.done(err)
	}
	if err := e.sess.SetCompleted(ctx, args[0], completed); err != nil {
		return e.done(err)
	}
	e.printTasks()
	return nil
}

func (e *env) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: todoctl rm <id>")
	}
	if err := e.signIn(); err != nil {
		return err
	}
	if err := e.sess.Remove(ctx, args[0]); err != nil {
		return e.done(err)
	}
	fmt.Fprintln(e.out, "Task deleted")
	e.printTasks()
	return nil
}

func (e *env) clear(ctx context.Context) error {
	if err := e.signIn(); err != nil {
		return err
	}
	if err := e.sess.Clear(ctx); err != nil {
		return e.done(err)
	}
	fmt.Fprintln(e.out, "All tasks deleted")
	return nil
}

func (e *env) search(ctx context.Context, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("usage: todoctl search <query>")
	}
	if err := e.signIn(); err != nil {
		return err
	}

	tasks, err := e.client.SearchTasks(ctx, query)
	if errors.Is(err, client.ErrUnauthorized) {
		e.sess.SetIdentity(nil)
	}
	if err != nil {
		return e.done(err)
	}
	writeTasks(e.out, tasks)
	return nil
}

func (e *env) printTasks() {
	writeTasks(e.out, e.sess.State().Tasks)
}

func writeTasks(w io.Writer, tasks []*models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "%s %s  %s\n", checkbox(t.Completed), t.Id, t.Text)
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func findTask(tasks []*models.Task, id string) *models.Task {
	for _, t := range tasks {
		if t.Id == id {
			return t
		}
	}
	return nil
}

func credentials(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password (default from TODOCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *password == "" {
		*password = os.Getenv("TODOCTL_PASSWORD")
	}
	if *email == "" || *password == "" {
		return "", "", fmt.Errorf("usage: %s -email <email> -password <password>", name)
	}
	return *email, *password, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "todoctl - command-line client for the todo API")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  todoctl [options] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  signup -email E -password P  Create an account")
	fmt.Fprintln(w, "  login -email E -password P   Log in and store the token")
	fmt.Fprintln(w, "  logout                       Revoke and forget the stored token")
	fmt.Fprintln(w, "  whoami                       Show the signed-in account")
	fmt.Fprintln(w, "  list [-filter F]             List tasks (all|completed|incomplete)")
	fmt.Fprintln(w, "  add <text>                   Add a task")
	fmt.Fprintln(w, "  edit <id> <text>             Change a task's text")
	fmt.Fprintln(w, "  done <id>                    Mark a task completed")
	fmt.Fprintln(w, "  undo <id>                    Mark a task incomplete")
	fmt.Fprintln(w, "  rm <id>                      Delete a task")
	fmt.Fprintln(w, "  clear                        Delete all tasks")
	fmt.Fprintln(w, "  search <query>               Full-text search")
	fmt.Fprintln(w, "  tui                          Interactive terminal view")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
