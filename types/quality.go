package types

// AudioQuality represents the requested MP3 bitrate tier
type AudioQuality string

const (
	AudioQualityLow    AudioQuality = "low"    // 96kbps
	AudioQualityMedium AudioQuality = "medium" // 128kbps
	AudioQualityHigh   AudioQuality = "high"   // 192kbps
	AudioQualityUltra  AudioQuality = "ultra"  // 320kbps
)

// Bitrate returns the MP3 bitrate in kbps for the quality tier.
// Unknown values fall back to the medium tier.
func (q AudioQuality) Bitrate() int {
	switch q {
	case AudioQualityLow:
		return 96
	case AudioQualityHigh:
		return 192
	case AudioQualityUltra:
		return 320
	default:
		return 128
	}
}

// Valid reports whether the value is a known audio quality tier.
func (q AudioQuality) Valid() bool {
	switch q {
	case AudioQualityLow, AudioQualityMedium, AudioQualityHigh, AudioQualityUltra:
		return true
	}
	return false
}

// FormatSelector returns the extractor format expression for audio fetches.
func (q AudioQuality) FormatSelector() string {
	return "bestaudio[ext=m4a]/bestaudio/best"
}

// VideoQuality represents the requested video resolution cap
type VideoQuality string

const (
	VideoQuality360  VideoQuality = "360p"
	VideoQuality480  VideoQuality = "480p"
	VideoQuality720  VideoQuality = "720p"
	VideoQuality1080 VideoQuality = "1080p"
	VideoQualityBest VideoQuality = "best"
)

// Valid reports whether the value is a known video quality tier.
func (q VideoQuality) Valid() bool {
	switch q {
	case VideoQuality360, VideoQuality480, VideoQuality720, VideoQuality1080, VideoQualityBest:
		return true
	}
	return false
}

// FormatSelector returns the extractor format expression for video fetches.
func (q VideoQuality) FormatSelector() string {
	switch q {
	case VideoQuality360:
		return "best[height<=360]/worst"
	case VideoQuality480:
		return "best[height<=480]/best[height<=720]/worst"
	case VideoQuality720:
		return "best[height<=720]/best[height<=1080]/worst"
	case VideoQuality1080:
		return "best[height<=1080]/best[height<=1440]/worst"
	default:
		return "best"
	}
}
