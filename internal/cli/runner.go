package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/idilsaglam/todosync/internal/facade"
	"github.com/idilsaglam/todosync/internal/model"
	"github.com/idilsaglam/todosync/internal/ui"
)

// Options tune output behavior from root flags.
type Options struct {
	Group bool // list grouped by pending/done

	Facade *facade.Facade
	// Interactive runs the full-screen view for the ui subcommand.
	Interactive func(ctx context.Context) error
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]
	f := opt.Facade

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		return doList(ctx, f, a, opt)

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: todo add <title...> [#category] [!priority] [-- description]")
			return 2
		}
		return doAdd(ctx, f, strings.Join(a, " "))

	case "edit":
		if len(a) < 2 {
			ui.Fail("usage: todo edit <id> <title...> [#category] [!priority] [-- description]")
			return 2
		}
		return doEdit(ctx, f, model.ID(a[0]), strings.Join(a[1:], " "))

	case "done", "undo":
		if len(a) != 1 {
			ui.Fail("usage: todo " + cmd + " <id>")
			return 2
		}
		return doToggle(ctx, f, model.ID(a[0]), cmd == "done")

	case "rm":
		if len(a) != 1 {
			ui.Fail("usage: todo rm <id>")
			return 2
		}
		return doRemove(ctx, f, model.ID(a[0]))

	case "cat":
		return doCategory(ctx, f, a)

	case "ui":
		if opt.Interactive == nil {
			ui.Fail("ui: not available")
			return 1
		}
		if err := opt.Interactive(ctx); err != nil {
			ui.Fail("tui: " + err.Error())
			return 1
		}
		return 0
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprint(ui.Stdout, `todo - a terminal client for the todo API

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls [-page N] [-search text]     List one page of todos
  add <entry...>                  Create a todo
  edit <id> <entry...>            Replace the fields of a todo
  done <id> | undo <id>           Mark a todo completed / pending
  rm <id>                         Delete a todo
  cat [ls]                        List categories
  cat add <name>                  Add a category
  cat rm <id|name>                Delete a category (todos keep the name)
  ui                              Interactive view

Entries:
  <title words> [#category | #"two words"] [!high|!medium|!low] [-- description]
  prefix a title word with \ to keep it literal: \#12 \!high

Examples:
  todo add Buy milk #errands !low
  todo ls -search milk
  todo done 2
  todo cat add errands
`)
}

// -------------- subcommand impls ----------------

func doList(ctx context.Context, f *facade.Facade, args []string, opt Options) int {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	page := fs.Int("page", 1, "page number")
	search := fs.String("search", "", "filter by title")
	if err := fs.Parse(args); err != nil {
		ui.Fail("ls: " + err.Error())
		return 2
	}
	if fs.NArg() > 0 {
		*search = strings.Join(fs.Args(), " ")
	}

	if !f.FetchTodos(ctx, *page, *search) {
		return 1
	}
	items, ps := f.Todos(), f.Pagination()

	// Header + progress
	d, p := model.Stats(items)
	th := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d  %s",
		ui.C(th.Title, "Todos"),
		ui.C(th.Success, th.SymDone), d,
		ui.C(th.Pending, th.SymUnchecked), p,
		ui.C(th.Accent, "Total"), ps.Total,
		ui.C(th.Muted, fmt.Sprintf("page %d/%d", ps.Current, ps.Pages())),
	)

	var lines []string
	lines = append(lines, header)
	if *search != "" {
		lines = append(lines, ui.C(th.Muted, "search: "+*search))
	}
	lines = append(lines, ui.C(th.Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if opt.Group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Muted, "Tip: add with `todo add Buy milk #errands !low`"))
	ui.Panel(lines)
	return 0
}

func doAdd(ctx context.Context, f *facade.Facade, entry string) int {
	v := model.ParseEntry(entry)
	if strings.TrimSpace(v.Title) == "" || strings.TrimSpace(v.Category) == "" {
		ui.Fail("add: an entry needs a title and a #category")
		return 2
	}
	if !f.SaveTodo(ctx, v, false, "") {
		ui.Fail("add: could not save")
		return 1
	}
	return 0
}

func doEdit(ctx context.Context, f *facade.Facade, id model.ID, entry string) int {
	rec, code := findTodo(ctx, f, id)
	if code != 0 {
		return code
	}
	v := model.ValuesOf(rec)
	in := model.ParseEntry(entry)
	if in.Title != "" {
		v.Title = in.Title
	}
	if in.Category != "" {
		v.Category = in.Category
	}
	if in.Priority != "" {
		v.Priority = in.Priority
	}
	if in.Description != "" {
		v.Description = in.Description
	}
	if !f.SaveTodo(ctx, v, true, id) {
		ui.Fail("edit: could not save")
		return 1
	}
	return 0
}

func doToggle(ctx context.Context, f *facade.Facade, id model.ID, completed bool) int {
	rec, code := findTodo(ctx, f, id)
	if code != 0 {
		return code
	}
	if !f.ToggleStatus(ctx, rec, completed) {
		ui.Fail("toggle: could not update")
		return 1
	}
	if completed {
		ui.OK("done")
	} else {
		ui.OK("reopened")
	}
	return 0
}

func doRemove(ctx context.Context, f *facade.Facade, id model.ID) int {
	if !f.DeleteTodo(ctx, id) {
		ui.Fail("rm: could not delete " + id.String())
		return 1
	}
	return 0
}

func doCategory(ctx context.Context, f *facade.Facade, args []string) int {
	sub := "ls"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "ls":
		if !f.FetchTodos(ctx, 1, "") {
			return 1
		}
		return printCategories(f.Categories())
	case "add":
		name := strings.TrimSpace(strings.Join(args, " "))
		if name == "" {
			ui.Fail("usage: todo cat add <name>")
			return 2
		}
		if !f.CategoryAction(ctx, facade.CategoryAdd, name) {
			ui.Fail("cat add: could not save")
			return 1
		}
		return 0
	case "rm":
		if len(args) == 0 {
			ui.Fail("usage: todo cat rm <id|name>")
			return 2
		}
		ref := strings.Join(args, " ")
		if !f.FetchTodos(ctx, 1, "") {
			return 1
		}
		// names are what users see, so accept one
		if c, ok := f.Category(ref); ok {
			ref = c.ID.String()
		}
		if !f.CategoryAction(ctx, facade.CategoryDelete, ref) {
			ui.Fail("cat rm: could not delete " + ref)
			return 1
		}
		return 0
	}
	ui.Fail("usage: todo cat <ls|add|rm>")
	return 2
}

// findTodo walks the unfiltered pages until it sees id.
func findTodo(ctx context.Context, f *facade.Facade, id model.ID) (model.Todo, int) {
	for page := 1; ; page++ {
		if !f.FetchTodos(ctx, page, "") {
			return model.Todo{}, 1
		}
		for _, it := range f.Todos() {
			if it.ID == id {
				return it, 0
			}
		}
		if page >= f.Pagination().Pages() {
			break
		}
	}
	ui.Fail("no todo with id " + id.String())
	fmt.Fprintln(ui.Stderr, ui.C(ui.Current().Muted, "Hint: run `todo ls` to see ids"))
	return model.Todo{}, 2
}

// -------------- rendering helpers --------------

func printCategories(cats []model.Category) int {
	th := ui.Current()
	lines := []string{ui.C(th.Title, "Categories")}
	if len(cats) == 0 {
		lines = append(lines, ui.C(th.Muted, "no categories"))
	}
	for _, c := range cats {
		lines = append(lines, fmt.Sprintf("%s %s", ui.C(th.Muted, fmt.Sprintf("%4s", c.ID)), ui.Tag(c.Name)))
	}
	ui.Panel(lines)
	return 0
}

func flatLines(items []model.Todo) []string {
	th := ui.Current()
	if len(items) == 0 {
		return []string{ui.C(th.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		box, color := th.BoxUnchecked, th.Muted
		if it.Completed {
			box, color = th.BoxChecked, th.Success
		}
		title := ansi.Truncate(it.Title, 60, "...")
		out = append(out, fmt.Sprintf("%s %s %s  %s %s",
			ui.C(th.Muted, fmt.Sprintf("%4s", it.ID)), ui.C(color, box), title,
			ui.Tag(it.Category), ui.Priority(it.Priority)))
		if it.Description != "" {
			out = append(out, "       "+ui.C(th.Muted, it.Description))
		}
	}
	return out
}

func groupLines(items []model.Todo) []string {
	var pend, done []model.Todo
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	th := ui.Current()
	var lines []string
	lines = append(lines, ui.C(th.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(th.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, ui.C(th.Muted, "(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
