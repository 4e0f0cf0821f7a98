package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/netguy204/ve/internal/artifact"
	"github.com/netguy204/ve/internal/frontmatter"
	"github.com/netguy204/ve/internal/index"
	"github.com/netguy204/ve/internal/overlap"
	"github.com/netguy204/ve/internal/refs"
	"github.com/netguy204/ve/internal/symbols"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/verrors"
)

func init() {
	for _, k := range types.AllKinds {
		rootCmd.AddCommand(newKindCommandGroup(k))
	}
}

// newKindCommandGroup builds the create/list/status/transition subcommand
// set for one artifact kind, e.g. `ve chunk create`, `ve chunk list`.
func newKindCommandGroup(kind types.Kind) *cobra.Command {
	name := string(kind)
	group := &cobra.Command{
		Use:     name,
		GroupID: "artifact",
		Short:   fmt.Sprintf("Manage %s artifacts", name),
	}

	group.AddCommand(&cobra.Command{
		Use:   "create <short>",
		Short: fmt.Sprintf("Create a new %s, rooted at the current tip set", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createArtifact(kind, args[0])
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s artifacts in topological order", name),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listArtifacts(kind)
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "show <short>",
		Short: fmt.Sprintf("Render a %s's body as styled terminal markdown", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showArtifact(kind, args[0])
		},
	})

	group.AddCommand(&cobra.Command{
		Use:   "status <short> [new-status]",
		Short: "Print or transition an artifact's status",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return printStatus(kind, args[0])
			}
			return transitionStatus(kind, args[0], types.Status(args[1]))
		},
	})

	if kind == types.KindChunk {
		group.AddCommand(&cobra.Command{
			Use:   "overlap <short>",
			Short: "Find active artifacts whose code references overlap this chunk's",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return chunkOverlap(args[0])
			},
		})
	}

	return group
}

func kindDir(root string, kind types.Kind) string {
	return filepath.Join(root, "docs", kind.DirName())
}

func createArtifact(kind types.Kind, short string) error {
	root := requireProjectRoot()

	if err := artifact.ValidateShortName(short); err != nil {
		return err
	}

	idx, err := index.New(root)
	if err != nil {
		return err
	}
	if _, err := idx.EnsureFresh(kind); err != nil {
		return err
	}

	if dups, err := idx.FindDuplicates(kind, short); err != nil {
		return err
	} else if len(dups) > 0 {
		return &verrors.CollisionDetected{Kind: string(kind), Name: short}
	}

	tips, err := idx.FindTips(kind, nil)
	if err != nil {
		return err
	}

	dir := filepath.Join(kindDir(root, kind), short)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	fm := types.Frontmatter{
		Status:       artifact.InitialStatus(kind),
		CreatedAfter: tips,
	}
	body := defaultBody(kind, short)
	if err := writeNewArtifact(filepath.Join(dir, kind.MainFile()), fm, body); err != nil {
		return err
	}

	if _, err := idx.Build(kind); err != nil {
		return err
	}
	if err := idx.Save(); err != nil {
		return err
	}

	fmt.Printf("created %s/%s (created_after=%v)\n", kind, short, tips)
	return nil
}

func defaultBody(kind types.Kind, short string) string {
	switch kind {
	case types.KindChunk:
		return fmt.Sprintf("# %s\n\nGoal: describe the intended outcome of this chunk.\n", short)
	default:
		return fmt.Sprintf("# %s\n\nOverview: describe this %s.\n", short, kind)
	}
}

// writeNewArtifact renders fm+body as a fresh markdown file with a
// frontmatter block, matching frontmatter.Document's own Render shape.
func writeNewArtifact(path string, fm types.Frontmatter, body string) error {
	node := &yaml.Node{}
	if err := node.Encode(fm); err != nil {
		return err
	}
	doc := &frontmatter.Document{Root: node, Body: body}
	return doc.Write(path)
}

func listArtifacts(kind types.Kind) error {
	root := requireProjectRoot()
	idx, err := index.New(root)
	if err != nil {
		return err
	}
	if _, err := idx.EnsureFresh(kind); err != nil {
		return err
	}
	ordered, err := idx.Ordered(kind, nil)
	if err != nil {
		return err
	}
	for _, short := range ordered {
		fmt.Println(short)
	}
	return nil
}

// showArtifact renders an artifact's markdown body with glamour for
// human-facing CLI prose.
func showArtifact(kind types.Kind, short string) error {
	root := requireProjectRoot()
	path := filepath.Join(kindDir(root, kind), short, kind.MainFile())
	doc, err := frontmatter.Read(path)
	if err != nil {
		return err
	}
	if doc == nil {
		return &verrors.NotFound{Kind: string(kind), Name: short}
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(doc.Body)
		return nil
	}
	rendered, err := renderer.Render(doc.Body)
	if err != nil {
		// Not every terminal/CI environment renders ANSI cleanly; fall back
		// to the raw body rather than failing the command.
		rendered = doc.Body
	}
	fmt.Print(rendered)
	return nil
}

func loadFrontmatterFile(root string, kind types.Kind, short string) (string, *types.Frontmatter, error) {
	path := filepath.Join(kindDir(root, kind), short, kind.MainFile())
	doc, err := frontmatter.Read(path)
	if err != nil {
		return path, nil, err
	}
	if doc == nil {
		return path, nil, &verrors.NotFound{Kind: string(kind), Name: short}
	}
	var fm types.Frontmatter
	if err := doc.Root.Decode(&fm); err != nil {
		return path, nil, err
	}
	return path, &fm, nil
}

func printStatus(kind types.Kind, short string) error {
	root := requireProjectRoot()
	_, fm, err := loadFrontmatterFile(root, kind, short)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", short, fm.Status)
	return nil
}

func transitionStatus(kind types.Kind, short string, to types.Status) error {
	root := requireProjectRoot()
	path, fm, err := loadFrontmatterFile(root, kind, short)
	if err != nil {
		return err
	}

	if err := artifact.CheckTransition(kind, fm.Status, to); err != nil {
		return err
	}

	if kind == types.KindChunk && to == artifact.ChunkImplementing {
		impl, err := currentlyImplementingChunk(root)
		if err != nil {
			return err
		}
		if err := artifact.CheckSingleImplementing(short, impl); err != nil {
			return err
		}
	}

	if err := frontmatter.UpdateField(path, "status", to); err != nil {
		return err
	}

	fmt.Printf("%s: %s -> %s\n", short, fm.Status, to)
	return nil
}

func currentlyImplementingChunk(root string) (string, error) {
	entries, err := os.ReadDir(kindDir(root, types.KindChunk))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		_, fm, err := loadFrontmatterFile(root, types.KindChunk, e.Name())
		if err != nil {
			continue
		}
		if fm.Status == artifact.ChunkImplementing {
			return e.Name(), nil
		}
	}
	return "", nil
}

// chunkOverlap finds every active chunk or stable subsystem whose code
// references hierarchically overlap short's, printing one line per match.
// Candidates earlier than short are: same-kind artifacts earlier in the
// topological order, and every stable subsystem (subsystems predate the
// chunks built against them).
func chunkOverlap(short string) error {
	root := requireProjectRoot()

	idx, err := index.New(root)
	if err != nil {
		return err
	}
	if _, err := idx.EnsureFresh(types.KindChunk); err != nil {
		return err
	}
	if _, err := idx.EnsureFresh(types.KindSubsystem); err != nil {
		return err
	}

	_, targetFM, err := loadFrontmatterFile(root, types.KindChunk, short)
	if err != nil {
		return err
	}
	targetRefs := overlap.RefsFromFrontmatter(targetFM)
	if len(targetRefs) == 0 {
		fmt.Println("no code references to check")
		return nil
	}
	warnUnresolvedSymbols(root, targetRefs)

	chunkOrder, err := idx.Ordered(types.KindChunk, nil)
	if err != nil {
		return err
	}
	chunkPos := make(map[string]int, len(chunkOrder))
	for i, s := range chunkOrder {
		chunkPos[s] = i
	}
	targetPos, ok := chunkPos[short]
	if !ok {
		return &verrors.NotFound{Kind: string(types.KindChunk), Name: short}
	}

	candidates, err := overlapCandidates(root, idx, types.KindChunk, short)
	if err != nil {
		return err
	}
	subsystemCandidates, err := overlapCandidates(root, idx, types.KindSubsystem, "")
	if err != nil {
		return err
	}
	candidates = append(candidates, subsystemCandidates...)

	isEarlier := func(candShort string) bool {
		if pos, ok := chunkPos[candShort]; ok {
			return pos < targetPos
		}
		// Not a chunk: the only other candidates are stable subsystems,
		// which by definition precede any chunk built against them.
		return true
	}

	results := overlap.Detect(targetRefs, candidates, isEarlier)
	if len(results) == 0 {
		fmt.Println("no overlapping artifacts")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%s/%s overlaps via %v\n", r.Kind, r.Short, r.OverlappingRefs)
	}
	return nil
}

// overlapCandidates loads every active-status artifact of kind into overlap
// candidates, skipping exclude (the chunk overlap is being computed for).
func overlapCandidates(root string, idx *index.ArtifactIndex, kind types.Kind, exclude string) ([]overlap.Candidate, error) {
	shorts, err := idx.Ordered(kind, overlap.ActiveStatus(kind))
	if err != nil {
		return nil, err
	}
	var out []overlap.Candidate
	for _, short := range shorts {
		if short == exclude {
			continue
		}
		_, fm, err := loadFrontmatterFile(root, kind, short)
		if err != nil {
			continue
		}
		out = append(out, overlap.Candidate{Kind: kind, Short: short, Refs: overlap.RefsFromFrontmatter(fm)})
	}
	return out, nil
}

// warnUnresolvedSymbols extracts each referenced file's real symbol set and
// warns on stderr about any targetRef whose symbol isn't among them: a
// frontmatter code_reference that has drifted from the source it names.
func warnUnresolvedSymbols(root string, targetRefs []string) {
	reg := symbols.NewRegistry()
	for _, ref := range targetRefs {
		file, symbol, hasSymbol := refs.Parse(ref)
		if !hasSymbol {
			continue
		}
		found, err := reg.Extract(filepath.Join(root, file))
		if err != nil {
			continue
		}
		if _, ok := found[symbol]; !ok {
			fmt.Fprintf(os.Stderr, "warning: %s has no extracted symbol %q in %s\n", ref, symbol, file)
		}
	}
}
