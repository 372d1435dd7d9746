package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/casestudio/internal/client"
	"github.com/JaimeStill/casestudio/internal/schema"
)

type promptFlags struct {
	topic      string
	context    string
	audience   string
	keyPoints  []string
	tone       string
	source     string
	sourceFile string
	length     string
	style      string
	variants   int
}

var (
	flags     promptFlags
	useStream bool
	useWS     bool
	asJSON    bool
)

var generateCmd = &cobra.Command{
	Use:       "generate <outline|summary|headline>",
	Short:     "Generate a validated result for a prompt",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"outline", "summary", "headline"},
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPrompt(args[0], flags)
		if err != nil {
			return fail(err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var result schema.Response
		switch {
		case useWS:
			result, err = subscribe(ctx, client.NewWebSocket(serverURL, token), p, cmd.ErrOrStderr())
		case useStream:
			result, err = subscribe(ctx, client.NewHTTP(serverURL, token, 0), p, cmd.ErrOrStderr())
		default:
			result, err = client.NewHTTP(serverURL, token, timeout).Generate(ctx, p)
		}
		if err != nil {
			return fail(err)
		}

		return render(cmd.OutOrStdout(), result)
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&flags.topic, "topic", "", "Topic (outline, headline)")
	f.StringVar(&flags.context, "context", "", "Background context (outline)")
	f.StringVar(&flags.audience, "audience", "", "Target audience (outline, headline)")
	f.StringSliceVar(&flags.keyPoints, "key-point", nil, "Key point to cover, repeatable (outline)")
	f.StringVar(&flags.tone, "tone", "", "neutral, friendly, formal, persuasive, or technical (outline, summary)")
	f.StringVar(&flags.source, "source", "", "Source text (summary)")
	f.StringVar(&flags.sourceFile, "source-file", "", "Read source text from a file, - for stdin (summary)")
	f.StringVar(&flags.length, "length", "", "short, medium, or long (summary)")
	f.StringVar(&flags.style, "style", "", "punchy, insightful, formal, or playful (headline)")
	f.IntVar(&flags.variants, "variants", 0, "Number of alternative headlines, 1-5 (headline)")

	generateCmd.Flags().BoolVar(&useStream, "stream", false, "Stream progress over server-sent events")
	generateCmd.Flags().BoolVar(&useWS, "ws", false, "Stream progress over a WebSocket")
	generateCmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON instead of markdown")
	generateCmd.MarkFlagsMutuallyExclusive("stream", "ws")
	generateCmd.MarkFlagsMutuallyExclusive("source", "source-file")
}

// buildPrompt assembles the prompt document for typ from flags and validates
// it locally before anything is sent.
func buildPrompt(typ string, f promptFlags) (schema.Prompt, error) {
	t, err := schema.ParsePromptType(typ)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{"type": t}
	set := func(key, value string) {
		if value != "" {
			doc[key] = value
		}
	}

	switch t {
	case schema.TypeOutline:
		set("topic", f.topic)
		set("context", f.context)
		set("audience", f.audience)
		set("tone", f.tone)
		if len(f.keyPoints) > 0 {
			doc["keyPoints"] = f.keyPoints
		}
	case schema.TypeSummary:
		source := f.source
		if f.sourceFile != "" {
			if source, err = readSource(f.sourceFile); err != nil {
				return nil, err
			}
		}
		set("source", source)
		set("length", f.length)
		set("tone", f.tone)
	case schema.TypeHeadline:
		set("topic", f.topic)
		set("audience", f.audience)
		set("style", f.style)
		if f.variants != 0 {
			doc["variantCount"] = f.variants
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return schema.ValidatePrompt(raw)
}

func readSource(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// subscribe drives a controller over sub and reports snapshots to progress
// until the generation settles or ctx ends.
func subscribe(ctx context.Context, sub client.Subscriber, p schema.Prompt, progress io.Writer) (schema.Response, error) {
	ctrl := client.NewController(sub, nil, logger())

	faint := color.New(color.Faint)
	snapshots := 0
	ctrl.OnChange(func(s client.State) {
		if s.Status == client.StatusLoading && s.Snapshot != nil {
			snapshots++
			faint.Fprintf(progress, "\r%s %d partial updates", spinner[snapshots%len(spinner)], snapshots)
		}
	})

	ctrl.Generate(p)

	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		ctrl.Reset()
		<-done
		fmt.Fprintln(progress)
		return nil, ctx.Err()
	}

	if snapshots > 0 {
		fmt.Fprintln(progress)
	}

	state := ctrl.State()
	switch state.Status {
	case client.StatusSuccess:
		return state.Result, nil
	case client.StatusError:
		return nil, fmt.Errorf("%s (%s)", state.Error, state.Reason)
	}
	return nil, client.ErrIncomplete
}

var spinner = []string{"|", "/", "-", "\\"}

func render(w io.Writer, r schema.Response) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintln(w, r.Markdown())
	return err
}

func fail(err error) error {
	fmt.Fprintln(os.Stderr, color.RedString("Fatal: %s", err))
	return err
}
