package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"partforge/internal/store"
)

// =============================================================================
// PROJECT MANAGEMENT
// =============================================================================

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage drafting projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		printProjects(a.store.Projects(), a.store.Active().ID)
		return nil
	},
}

var projectsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new project and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess := a.store.CreateNewProject()
		if len(args) > 0 {
			if err := a.store.RenameProject(sess.ID, strings.Join(args, " ")); err != nil {
				return err
			}
		}
		fmt.Printf("created %q (%s)\n", a.store.Active().Name, sess.ID)
		return nil
	},
}

var projectsOpenCmd = &cobra.Command{
	Use:   "open [id]",
	Short: "Make a project active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.LoadProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("active project: %q\n", a.store.Active().Name)
		return nil
	},
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename [id] [name]",
	Short: "Rename a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return a.store.RenameProject(args[0], strings.Join(args[1:], " "))
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.DeleteProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted; active project is now %q\n", a.store.Active().Name)
		return nil
	},
}

func printProjects(projects []store.ProjectIndexEntry, activeID string) {
	if len(projects) == 0 {
		fmt.Println("no projects")
		return
	}
	for i, p := range projects {
		marker := " "
		if p.ID == activeID {
			marker = "*"
		}
		line := fmt.Sprintf("%2d.%s %s - %s (%s)", i+1, marker, p.Name, p.Preview, p.ID)
		if p.ShareSlug != "" {
			line += " shared as " + p.ShareSlug
		}
		fmt.Println(line)
	}
}

// =============================================================================
// DRAFT OPERATIONS
// =============================================================================

var bomCmd = &cobra.Command{
	Use:   "bom",
	Short: "Show the active bill of materials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		printBOM(a.store.Active(), a.drafter.Engine().TotalCost())
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the active draft against its design requirements",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess := a.store.Active()
		if sess.CachedAuditResult != "" && !sess.CacheDirty() {
			fmt.Println(sess.CachedAuditResult)
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		report, err := a.drafter.RunAudit(ctx)
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build (or show the cached) assembly plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sess := a.store.Active()
		if sess.CachedAssemblyPlan != nil && !sess.CacheDirty() {
			printPlan(sess.CachedAssemblyPlan)
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		plan, err := a.drafter.BuildPlan(ctx)
		if err != nil {
			return err
		}
		printPlan(plan)
		return nil
	},
}

var imageCmd = &cobra.Command{
	Use:   "image [description]",
	Short: "Render a concept image for the active draft",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		img, err := a.drafter.GenerateConceptImage(ctx, strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		fmt.Printf("rendered image %s\n", img.ID)
		return nil
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source [instance-id]",
	Short: "Fetch purchasing options and suppliers for a BOM entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		sourcing, err := a.drafter.FetchSourcing(ctx, args[0])
		if err != nil {
			return err
		}
		printSourcing(sourcing)
		return nil
	},
}

var briefCmd = &cobra.Command{
	Use:   "brief [instance-id]",
	Short: "Fetch a fabrication brief for a BOM entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout(a.cfg))
		defer cancel()
		brief, err := a.drafter.FetchFabricationBrief(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(brief)
		return nil
	},
}

// =============================================================================
// SHARING AND INTERCHANGE
// =============================================================================

var shareCmd = &cobra.Command{
	Use:   "share [slug]",
	Short: "Reserve a public share slug for the active project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		slug, err := a.store.ReserveSlug(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("project %q shared as %q\n", a.store.Active().Name, slug)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the active project as a JSON document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		data, err := a.store.ExportProject(a.store.Active().ID)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Printf("exported %q to %s\n", a.store.Active().Name, args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import an exported project as a new local project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read import file: %w", err)
		}
		sess, err := a.store.ImportProject(data)
		if err != nil {
			return err
		}
		fmt.Printf("imported %q (%s), now active\n", sess.Name, sess.ID)
		return nil
	},
}
