package extract

import "testing"

func TestExtractFiltersNoiseAndPunctuation(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	got := e.Extract("怎么 实现 Sprite 拖拽 效果？", 4)
	if got != "Sprite 拖拽" {
		t.Fatalf("Extract() = %q, want %q", got, "Sprite 拖拽")
	}
}

func TestExtractPrefersCapitalizedIdentifiers(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	got := e.Extract("加载 进度条 Loader Handler 回调", 3)
	if got != "Loader Handler 加载" {
		t.Fatalf("Extract() = %q, want %q", got, "Loader Handler 加载")
	}
}

func TestExtractTruncatesToMaxWords(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	got := e.Extract("Sprite Animator Loader Timer Button", 2)
	if got != "Sprite Animator" {
		t.Fatalf("Extract() = %q, want %q", got, "Sprite Animator")
	}
}

func TestExtractStripsMarkup(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	got := e.Extract("<p>Tween 动画 <b>卡顿</b></p>", 4)
	if got != "Tween 动画 卡顿" {
		t.Fatalf("Extract() = %q, want %q", got, "Tween 动画 卡顿")
	}
}

func TestExtractEmptyCases(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	cases := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"all noise", "怎么 实现 这个 效果 呢"},
		{"single rune tokens", "a b c 了"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Extract(tc.in, 4); got != "" {
				t.Fatalf("Extract(%q) = %q, want empty", tc.in, got)
			}
		})
	}
}

func TestExtractDeduplicatesTokens(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	got := e.Extract("Timer 定时器 Timer 不触发", 4)
	if got != "Timer 定时器 不触发" {
		t.Fatalf("Extract() = %q, want %q", got, "Timer 定时器 不触发")
	}
}

func TestExtractDefaultMaxWords(t *testing.T) {
	t.Parallel()
	e := NewExtractor(Config{})

	got := e.Extract("alpha beta gamma delta epsilon", 0)
	if got != "alpha beta gamma delta" {
		t.Fatalf("Extract() = %q, want first four tokens", got)
	}
}
