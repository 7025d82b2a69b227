package media

import (
	"strings"

	"github.com/skillsenselab/tubescribe/internal/apperr"
)

// ErrorKind classifies a downloader failure.
type ErrorKind string

const (
	KindPrivateVideo     ErrorKind = "private_video"
	KindUnavailable      ErrorKind = "unavailable"
	KindAgeRestricted    ErrorKind = "age_restricted"
	KindCopyrightBlocked ErrorKind = "copyright_blocked"
	KindUnclassified     ErrorKind = "download_error"
)

// classifyRule maps a substring of the downloader's error output to a
// kind. Rules are evaluated in order; first match wins.
type classifyRule struct {
	pattern string
	kind    ErrorKind
}

// Substring matching against yt-dlp's wording is brittle but deliberate:
// the tool exposes no structured error codes. Keeping the rules as an
// ordered table at least isolates the coupling.
var classifyRules = []classifyRule{
	{"private video", KindPrivateVideo},
	{"video unavailable", KindUnavailable},
	{"video is unavailable", KindUnavailable},
	{"removed by the uploader", KindUnavailable},
	{"sign in to confirm your age", KindAgeRestricted},
	{"age-restricted", KindAgeRestricted},
	{"copyright", KindCopyrightBlocked},
	{"blocked in your country", KindCopyrightBlocked},
}

// Classify maps downloader error output to an ErrorKind, falling back to
// an explicit unclassified kind.
func Classify(output string) ErrorKind {
	lower := strings.ToLower(output)
	for _, rule := range classifyRules {
		if strings.Contains(lower, rule.pattern) {
			return rule.kind
		}
	}
	return KindUnclassified
}

var kindMessages = map[ErrorKind]string{
	KindPrivateVideo:     "This video is private and cannot be transcribed.",
	KindUnavailable:      "This video is unavailable or has been removed.",
	KindAgeRestricted:    "This video is age-restricted and cannot be downloaded.",
	KindCopyrightBlocked: "This video is blocked for copyright reasons.",
	KindUnclassified:     "Failed to download audio from the video.",
}

// downloadError builds the user-facing error for a classified failure.
func downloadError(kind ErrorKind, cause error) *apperr.AppError {
	return apperr.DownloadFailed(kindMessages[kind], cause).WithDetail("kind", string(kind))
}
