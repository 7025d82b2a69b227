package media

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   ErrorKind
	}{
		{"private", "ERROR: [youtube] abc123: Private video. Sign in if you've been granted access", KindPrivateVideo},
		{"unavailable", "ERROR: [youtube] abc123: Video unavailable", KindUnavailable},
		{"removed", "ERROR: This video has been removed by the uploader", KindUnavailable},
		{"age restricted", "ERROR: Sign in to confirm your age. This video may be inappropriate", KindAgeRestricted},
		{"copyright", "ERROR: Video unavailable. This video contains content from X, who has blocked it on copyright grounds", KindUnavailable},
		{"country block", "ERROR: The uploader has not made this video available in your country. This video is blocked in your country", KindCopyrightBlocked},
		{"unknown", "ERROR: something completely different", KindUnclassified},
		{"empty", "", KindUnclassified},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.output); got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.output, got, tc.want)
			}
		})
	}
}

func TestDownloadError_CarriesKind(t *testing.T) {
	err := downloadError(KindPrivateVideo, nil)
	if err.Details["kind"] != string(KindPrivateVideo) {
		t.Fatalf("kind detail = %v", err.Details["kind"])
	}
	if err.Message != kindMessages[KindPrivateVideo] {
		t.Fatalf("message = %q", err.Message)
	}
}
