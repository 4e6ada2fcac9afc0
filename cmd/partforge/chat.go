package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"partforge/internal/draft"
)

// runChat is the default interactive drafting loop.
func runChat() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sess := a.store.Active()
	fmt.Printf("partforge - drafting %q (%s)\n", sess.Name, sess.Preview())
	fmt.Println(`Describe your build, or type /help for commands.`)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := a.handleChatCommand(line)
			if err != nil {
				fmt.Printf("error: %v\n", err)
			}
			if done {
				return nil
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		result := a.drafter.ProcessTurn(ctx, line, nil)
		cancel()

		fmt.Println()
		fmt.Println(result.Reply)
		if len(result.Applied) > 0 {
			fmt.Printf("\n[%d change(s) applied, /bom to review]\n", len(result.Applied))
		}
		fmt.Println()
	}
}

// handleChatCommand dispatches slash commands. Returns done=true on /quit.
func (a *app) handleChatCommand(line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Println(`Commands:
  /bom            show the current bill of materials and total cost
  /search <q>     search the parts catalog
  /audit          run a design audit against the requirements
  /plan           build (or show the cached) assembly plan
  /image <desc>   render a concept image
  /source <n>     fetch sourcing for BOM entry n
  /brief <n>      fetch a fabrication brief for BOM entry n
  /new            start a new project
  /projects       list projects
  /open <n>       switch to project n from the list
  /rename <name>  rename the current project
  /quit           exit`)
		return false, nil

	case "/bom":
		printBOM(a.store.Active(), a.drafter.Engine().TotalCost())
		return false, nil

	case "/search":
		results := a.drafter.Engine().SearchCatalog(rest)
		if len(results) == 0 {
			fmt.Println("no catalog matches")
			return false, nil
		}
		for _, p := range results {
			fmt.Printf("  %-16s %-28s $%8.2f  %s\n", p.ID, p.Name, p.Price, p.Category)
		}
		return false, nil

	case "/audit":
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		report, err := a.drafter.RunAudit(ctx)
		if err != nil {
			return false, err
		}
		fmt.Println(report)
		return false, nil

	case "/plan":
		sess := a.store.Active()
		if plan := sess.CachedAssemblyPlan; plan != nil && !sess.CacheDirty() {
			printPlan(plan)
			return false, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		plan, err := a.drafter.BuildPlan(ctx)
		if err != nil {
			return false, err
		}
		printPlan(plan)
		return false, nil

	case "/image":
		if rest == "" {
			return false, fmt.Errorf("usage: /image <description>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		img, err := a.drafter.GenerateConceptImage(ctx, rest, nil)
		if err != nil {
			return false, err
		}
		fmt.Printf("rendered image %s (%d images stored)\n", img.ID, len(a.store.Active().GeneratedImages))
		return false, nil

	case "/source":
		sess := a.store.Active()
		idx := parseIndex(rest, len(sess.BOM))
		if idx < 0 {
			return false, fmt.Errorf("usage: /source <entry number from /bom>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		sourcing, err := a.drafter.FetchSourcing(ctx, sess.BOM[idx].InstanceID)
		if err != nil {
			return false, err
		}
		printSourcing(sourcing)
		return false, nil

	case "/brief":
		sess := a.store.Active()
		idx := parseIndex(rest, len(sess.BOM))
		if idx < 0 {
			return false, fmt.Errorf("usage: /brief <entry number from /bom>")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		brief, err := a.drafter.FetchFabricationBrief(ctx, sess.BOM[idx].InstanceID)
		if err != nil {
			return false, err
		}
		fmt.Println(brief)
		return false, nil

	case "/new":
		sess := a.store.CreateNewProject()
		fmt.Printf("started %q\n", sess.Name)
		return false, nil

	case "/projects":
		printProjects(a.store.Projects(), a.store.Active().ID)
		return false, nil

	case "/open":
		projects := a.store.Projects()
		idx := parseIndex(rest, len(projects))
		if idx < 0 {
			return false, fmt.Errorf("usage: /open <number from /projects>")
		}
		if err := a.store.LoadProject(projects[idx].ID); err != nil {
			return false, err
		}
		fmt.Printf("switched to %q\n", a.store.Active().Name)
		return false, nil

	case "/rename":
		if rest == "" {
			return false, fmt.Errorf("usage: /rename <new name>")
		}
		if err := a.store.RenameProject(a.store.Active().ID, rest); err != nil {
			return false, err
		}
		fmt.Printf("renamed to %q\n", rest)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

// parseIndex converts a 1-based user index into a bounds-checked 0-based one.
func parseIndex(s string, n int) int {
	var idx int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &idx); err != nil {
		return -1
	}
	if idx < 1 || idx > n {
		return -1
	}
	return idx - 1
}

func printBOM(sess *draft.DraftingSession, total float64) {
	if len(sess.BOM) == 0 {
		fmt.Println("the draft is empty")
		return
	}
	fmt.Printf("%s - %s\n", sess.Name, sess.DesignRequirements)
	for i, entry := range sess.BOM {
		flag := " "
		if !entry.IsCompatible {
			flag = "!"
		}
		fmt.Printf("%2d.%s %-28s x%-3d $%8.2f  [%s]\n",
			i+1, flag, entry.Part.Name, entry.Quantity,
			entry.Part.Price*float64(entry.Quantity), entry.Part.ID)
		for _, w := range entry.Warnings {
			fmt.Printf("      ⚠ %s\n", w)
		}
	}
	fmt.Printf("    total: $%.2f\n", total)
	if sess.CacheDirty() {
		fmt.Println("    (audit and assembly plan are out of date)")
	}
}

func printPlan(plan *draft.AssemblyPlan) {
	fmt.Println(plan.Overview)
	if plan.EstimatedTime != "" {
		fmt.Printf("estimated time: %s\n", plan.EstimatedTime)
	}
	for _, step := range plan.Steps {
		fmt.Printf("\n%d. %s\n   %s\n", step.Order, step.Title, step.Instructions)
	}
}

func printSourcing(s *draft.Sourcing) {
	for _, r := range s.Results {
		line := fmt.Sprintf("- %s (%s) %s", r.Title, r.Source, r.URL)
		if r.Price > 0 {
			line += fmt.Sprintf(" $%.2f", r.Price)
		}
		fmt.Println(line)
	}
	for _, sup := range s.Suppliers {
		fmt.Printf("- supplier: %s %s %s\n", sup.Name, sup.Address, sup.URL)
	}
}
