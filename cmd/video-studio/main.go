package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-video-studio/internal/auth"
	"github.com/fpang/ai-video-studio/internal/batch"
	"github.com/fpang/ai-video-studio/internal/compositor"
	"github.com/fpang/ai-video-studio/internal/encoder"
	"github.com/fpang/ai-video-studio/internal/export"
	"github.com/fpang/ai-video-studio/internal/gen"
	"github.com/fpang/ai-video-studio/internal/logging"
	"github.com/fpang/ai-video-studio/internal/metrics"
	"github.com/fpang/ai-video-studio/internal/playback"
	"github.com/fpang/ai-video-studio/internal/scene"
	"github.com/fpang/ai-video-studio/internal/wavutil"
)

// CLI flags
var (
	keywordFlag     string
	titleFlag       string
	channelFlag     string
	formatFlag      string
	voiceFlag       string
	outFlag         string
	concurrencyFlag int
	exportFlag      string
	sceneFlag       int
	previewFlag     bool
	protagonistFlag string
	protaImageFlag  string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "video-studio",
	Short: "AI-powered video authoring from idea to finished clips",
	Long: `Video Studio turns a topic into a narrated video: it asks Gemini for
trending topic ideas (grounded with Google Search), writes a full script,
splits it into storyboard scenes, generates an image and a narration track
for every scene, and composites the results into encoded video clips.

Exports come in three shapes: one clip for a single scene, a ZIP with one
clip per scene, or one continuous video spanning every scene in order.

Examples:
  video-studio --keyword "stoicism" --format shorts --export continuous
  video-studio --title "Why Letting Go Sets You Free" --format longform --export zip
  video-studio -k "retirement wisdom" --voice Kore --out ./exports
  video-studio --title "My Topic" --export single --scene 3
  video-studio  # Interactive mode - searches for ideas and prompts for a pick`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&keywordFlag, "keyword", "k", "", "Keyword to narrow the idea search")
	rootCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Video title (skips the idea-search step)")
	rootCmd.Flags().StringVar(&channelFlag, "channel", "Video Studio", "Channel name woven into the script")
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "longform", "Video format: longform (16:9) or shorts (9:16)")
	rootCmd.Flags().StringVar(&voiceFlag, "voice", gen.DefaultVoice, fmt.Sprintf("Narrator voice, one of %s", strings.Join(gen.Voices, ", ")))
	rootCmd.Flags().StringVarP(&outFlag, "out", "o", "./out", "Directory for exported files")
	rootCmd.Flags().IntVar(&concurrencyFlag, "concurrency", batch.DefaultConcurrency, "Concurrent asset-generation jobs")
	rootCmd.Flags().StringVarP(&exportFlag, "export", "e", "continuous", "Export shape: single, zip, continuous, or none")
	rootCmd.Flags().IntVar(&sceneFlag, "scene", 1, "Scene id for --export single")
	rootCmd.Flags().BoolVar(&previewFlag, "preview", false, "Play a preview pass before exporting (needs ffplay)")
	rootCmd.Flags().StringVar(&protagonistFlag, "protagonist", "", "Recurring character description applied to every scene image")
	rootCmd.Flags().StringVar(&protaImageFlag, "protagonist-image", "", "Reference image file for the protagonist")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	start := time.Now()

	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}
	logging.Init()

	shorts := strings.EqualFold(formatFlag, "shorts")
	sessionID := uuid.NewString()

	ctx := context.Background()
	generator := initGenerator(ctx)

	var profile *encoder.Profile
	if exportFlag != "none" {
		p, err := encoder.DetectProfile(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("No usable encoding profile, install ffmpeg or pass --export none")
		}
		profile = p
	}

	startupLog(sessionID, shorts, profile, time.Since(start))

	// Pick or accept a title.
	title := titleFlag
	if title == "" {
		title = pickIdea(ctx, generator)
	}

	// Script, storyboard, store.
	script, err := generator.GenerateScript(ctx, title, channelFlag, shorts)
	if err != nil {
		log.Fatal().Err(err).Msg("Script generation failed")
	}
	fmt.Printf("\n📝 Script ready: %q (%d sections, %d chars)\n", script.Title, len(script.Sections), len(script.Text()))

	drafts, err := generator.ExtractScenes(ctx, script.Text(), shorts)
	if err != nil {
		log.Fatal().Err(err).Msg("Scene extraction failed")
	}

	store := scene.NewStore()
	store.Reset(toDrafts(drafts))
	loadProtagonist(store)

	// Generate every scene's assets.
	target := compositor.TargetWide
	aspect := gen.AspectWide
	if shorts {
		target = compositor.TargetTall
		aspect = gen.AspectTall
	}

	runGeneration(ctx, generator, store, aspect, sessionID)

	if previewFlag {
		runPreview(ctx, store, nil)
	}

	if exportFlag != "none" {
		runExport(ctx, store, profile, target, sessionID)
	}

	log.Info().Dur("total", time.Since(start)).Msg("Session finished")
}

// initGenerator resolves the API key, builds the Gemini client, and
// validates the key before any expensive work starts.
func initGenerator(ctx context.Context) *gen.Generator {
	key, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("No API key available")
	}

	client, err := gen.NewClient(ctx, key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	generator := gen.New(client)

	if err := auth.ValidateAPIKey(ctx, generator); err != nil {
		log.Fatal().Err(err).Msg("API key validation failed")
	}
	return generator
}

// startupLog emits the one-line session configuration summary.
func startupLog(sessionID string, shorts bool, profile *encoder.Profile, initDur time.Duration) {
	sl := logging.NewSessionLogger("video-studio").
		SessionID(sessionID).
		Model("text", gen.ModelTextPro).
		Model("image", gen.ModelImage).
		Model("speech", gen.ModelSpeech).
		Feature("shorts", shorts).
		Feature("preview", previewFlag).
		Config("voice", voiceFlag).
		Config("export", exportFlag).
		Config("concurrency", strconv.Itoa(concurrencyFlag)).
		InitDuration(initDur)
	if profile != nil {
		sl.Config("profile", profile.Name)
	}
	sl.Log()
}

// pickIdea searches for trending topics and lets the user choose one.
func pickIdea(ctx context.Context, generator *gen.Generator) string {
	fmt.Println("\n🔍 Searching for trending topics...")
	ideas, err := generator.GenerateIdeas(ctx, keywordFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Idea generation failed")
	}
	if len(ideas) == 0 {
		log.Fatal().Msg("No ideas returned")
	}

	fmt.Println("\n============================================")
	fmt.Println("💡 Video ideas")
	fmt.Println("============================================")
	for i, idea := range ideas {
		fmt.Printf("%2d. %s\n    %s\n", i+1, idea.Title, idea.Premise)
		for _, src := range idea.Sources {
			if src.URI != "" {
				fmt.Printf("    · %s\n", src.URI)
			}
		}
	}
	fmt.Printf("\nPick an idea [1-%d, default 1]: ", len(ideas))

	choice := 1
	reader := bufio.NewReader(os.Stdin)
	if input, err := reader.ReadString('\n'); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(input)); err == nil && n >= 1 && n <= len(ideas) {
			choice = n
		}
	}
	return ideas[choice-1].Title
}

// toDrafts converts extracted scenes into store seeds.
func toDrafts(extracted []gen.SceneDraft) []scene.Draft {
	drafts := make([]scene.Draft, len(extracted))
	for i, d := range extracted {
		drafts[i] = scene.Draft{
			ID:          d.ID,
			Description: d.Description,
			ImagePrompt: d.ImagePrompt,
			VideoPrompt: d.VideoPrompt,
		}
	}
	return drafts
}

// loadProtagonist stores the optional style anchor from CLI flags.
func loadProtagonist(store *scene.Store) {
	if protagonistFlag == "" && protaImageFlag == "" {
		return
	}
	p := scene.Protagonist{Description: protagonistFlag}
	if protaImageFlag != "" {
		data, err := os.ReadFile(protaImageFlag)
		if err != nil {
			log.Fatal().Err(err).Str("path", protaImageFlag).Msg("Failed to read protagonist image")
		}
		p.Image = data
		p.MIME = mimeForPath(protaImageFlag)
	}
	store.SetProtagonist(p)
	log.Info().Bool("has_image", len(p.Image) > 0).Msg("Protagonist anchor set")
}

func mimeForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".jpg") || strings.EqualFold(filepath.Ext(path), ".jpeg") {
		return "image/jpeg"
	}
	return "image/png"
}

// runGeneration batches image and narration jobs for every scene that does
// not already have that asset, then prints a per-scene summary.
func runGeneration(ctx context.Context, generator *gen.Generator, store *scene.Store, aspect, sessionID string) {
	jobs := buildGenerationJobs(generator, store, aspect)
	fmt.Printf("\n⏳ Generating assets for %d scenes (%d jobs, %d at a time)...\n",
		store.Len(), len(jobs), concurrencyFlag)

	genStart := time.Now()
	sched := batch.New(concurrencyFlag)
	report, err := sched.Run(ctx, jobs)
	if err != nil {
		log.Fatal().Err(err).Msg("Generation batch failed")
	}

	if report.QuotaErr != nil {
		fmt.Println("\n🚫 API quota exhausted — remaining scenes can be regenerated with a fresh key or after the quota window resets.")
		log.Error().Err(report.QuotaErr).Msg("Quota exhausted during generation")
	}

	metrics.New(metrics.Namespace).
		Dimension("Operation", "generate").
		Metric("GenerationMs", float64(time.Since(genStart).Milliseconds()), metrics.UnitMilliseconds).
		Metric("JobsSucceeded", float64(report.Succeeded), metrics.UnitCount).
		Metric("JobsFailed", float64(report.Failed), metrics.UnitCount).
		Property("sessionId", sessionID).
		Flush()

	fmt.Println("\n--------------------------------------------")
	ready := 0
	for _, scn := range store.Snapshot() {
		status := "✅"
		detail := ""
		if !scn.ExportReady() {
			status = "❌"
			if scn.ImageErr != nil {
				detail = " image: " + scn.ImageErr.Error()
			}
			if scn.AudioErr != nil {
				detail += " audio: " + scn.AudioErr.Error()
			}
		} else {
			ready++
		}
		fmt.Printf("%s scene %2d (%.1fs audio)%s\n", status, scn.ID, sceneSeconds(scn), detail)
	}
	fmt.Printf("--------------------------------------------\n%d of %d scenes export-ready\n", ready, store.Len())
}

func sceneSeconds(scn scene.Scene) float64 {
	if scn.Audio != nil {
		return scn.Audio.Seconds
	}
	return 0
}

// buildGenerationJobs creates one image job and one narration job per scene,
// skipping assets that are already Ready so regeneration never repeats
// finished work.
func buildGenerationJobs(generator *gen.Generator, store *scene.Store, aspect string) []batch.Job {
	prota := store.Protagonist()

	var jobs []batch.Job
	for _, scn := range store.Snapshot() {
		scn := scn

		if scn.ImageState != scene.Ready {
			jobs = append(jobs, batch.Job{
				SceneID: scn.ID,
				Kind:    scene.KindImage,
				Run: func(ctx context.Context) error {
					store.MarkPending(scn.ID, scene.KindImage)
					data, mime, err := generator.GenerateImage(ctx, gen.ImageRequest{
						Prompt:        scn.ImagePrompt,
						AspectRatio:   aspect,
						StyleAnchor:   prota.Description,
						Reference:     prota.Image,
						ReferenceMIME: prota.MIME,
					})
					if err != nil {
						store.Apply(scn.ID, scene.KindImage, scene.Result{Err: err})
						return err
					}
					return store.Apply(scn.ID, scene.KindImage, scene.Result{
						Image: &scene.ImageAsset{Data: data, MIME: mime},
					})
				},
			})
		}

		if scn.AudioState != scene.Ready {
			jobs = append(jobs, batch.Job{
				SceneID: scn.ID,
				Kind:    scene.KindAudio,
				Run: func(ctx context.Context) error {
					store.MarkPending(scn.ID, scene.KindAudio)
					wav, err := generator.GenerateNarration(ctx, scn.Description, voiceFlag)
					if err != nil {
						store.Apply(scn.ID, scene.KindAudio, scene.Result{Err: err})
						return err
					}
					seconds, err := wavutil.Duration(wav)
					if err != nil {
						store.Apply(scn.ID, scene.KindAudio, scene.Result{Err: err})
						return err
					}
					return store.Apply(scn.ID, scene.KindAudio, scene.Result{
						Audio: &scene.AudioAsset{WAV: wav, Seconds: seconds},
					})
				},
			})
		}
	}
	return jobs
}

// runPreview plays one pass over the ready scenes through ffplay.
func runPreview(ctx context.Context, store *scene.Store, suspended func() bool) {
	fmt.Println("\n▶️  Preview pass (Ctrl+C to skip)...")
	controller := playback.New(store, playback.FFPlayer{}, suspended)
	err := controller.Play(ctx, func(scn scene.Scene) {
		fmt.Printf("   scene %d: %s\n", scn.ID, firstLine(scn.Description))
	})
	if err != nil {
		log.Warn().Err(err).Msg("Preview pass failed")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:60] + "…"
	}
	return s
}

// runExport runs the requested export shape and writes the artifact.
func runExport(ctx context.Context, store *scene.Store, profile *encoder.Profile, target compositor.Target, sessionID string) {
	if err := os.MkdirAll(outFlag, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", outFlag).Msg("Failed to create output directory")
	}

	orch := export.New(store, encoder.New(&encoder.FFmpegOpener{Profile: profile}), target)
	progress := func(pct int) { fmt.Printf("\r⏳ Exporting... %3d%%", pct) }

	exportStart := time.Now()
	var outPath string
	var err error

	switch exportFlag {
	case "single":
		var clip *encoder.Clip
		clip, err = orch.SingleScene(ctx, sceneFlag, progress)
		if err == nil {
			outPath = filepath.Join(outFlag, fmt.Sprintf("scene-%d.%s", sceneFlag, clip.Ext))
			err = os.WriteFile(outPath, clip.Data, 0o644)
		}

	case "zip":
		var archive *export.Archive
		archive, err = orch.AllScenesZip(ctx, progress)
		if err == nil {
			outPath = filepath.Join(outFlag, "scenes.zip")
			err = os.WriteFile(outPath, archive.Data, 0o644)
			fmt.Printf("\n📦 %d clips: %s\n", len(archive.Entries), strings.Join(archive.Entries, ", "))
		}

	case "continuous":
		var clip *encoder.Clip
		clip, err = orch.ContinuousVideo(ctx, progress)
		if err == nil {
			outPath = filepath.Join(outFlag, "video."+clip.Ext)
			err = os.WriteFile(outPath, clip.Data, 0o644)
			fmt.Printf("\n🎞  Continuous video: %.1fs\n", clip.Seconds)
		}

	default:
		log.Fatal().Str("export", exportFlag).Msg("Unknown export shape (use single, zip, continuous, or none)")
	}

	if err != nil {
		log.Fatal().Err(err).Str("export", exportFlag).Msg("Export failed")
	}

	metrics.New(metrics.Namespace).
		Dimension("Operation", exportFlag).
		Metric("ExportMs", float64(time.Since(exportStart).Milliseconds()), metrics.UnitMilliseconds).
		Count("Exports").
		Property("sessionId", sessionID).
		Flush()

	fmt.Printf("\n✅ Export complete: %s\n", outPath)
}
