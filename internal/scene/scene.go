// Package scene holds the session's storyboard state: the ordered scene
// list, each scene's generated assets and job states, and the shared
// protagonist style anchor. The Store is the single source of truth; batch
// jobs and user edits mutate it only through its methods.
package scene

// JobState tracks one asset-generation job for a scene.
type JobState int

const (
	// Idle means no generation has been attempted for this asset.
	Idle JobState = iota
	// Pending means a generation job is in flight.
	Pending
	// Ready means the asset was generated and stored.
	Ready
	// Failed means the most recent generation attempt failed.
	Failed
)

func (s JobState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// AssetKind selects which of a scene's two assets a job targets.
type AssetKind int

const (
	// KindImage is the scene's still image.
	KindImage AssetKind = iota
	// KindAudio is the scene's narration audio.
	KindAudio
)

func (k AssetKind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "image"
}

// ImageAsset is a generated scene still.
type ImageAsset struct {
	Data []byte
	MIME string
}

// AudioAsset is a generated narration track in a WAV container.
type AudioAsset struct {
	WAV []byte
	// Seconds is the track duration derived from the WAV header.
	Seconds float64
}

// Scene is one narrated storyboard beat.
type Scene struct {
	// ID is stable for the session; assigned at segmentation time.
	ID int
	// Ordinal is the 1-based position in the full scene list. Export entry
	// names use it and it never changes, even when siblings fail.
	Ordinal int

	Description string
	ImagePrompt string
	VideoPrompt string

	Image *ImageAsset
	Audio *AudioAsset

	ImageState JobState
	AudioState JobState

	// ImageErr and AudioErr hold the most recent failure for display.
	ImageErr error
	AudioErr error
}

// ExportReady reports whether both assets are generated.
func (s *Scene) ExportReady() bool {
	return s.ImageState == Ready && s.AudioState == Ready
}

// Protagonist is the session-wide character/style anchor biasing every scene
// image generation. Mutating it does not touch already-generated scenes.
type Protagonist struct {
	Description string
	Image       []byte
	MIME        string
}
