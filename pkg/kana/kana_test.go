package kana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHiragana(t *testing.T) {
	tr := New()
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"taberu", "たべる"},
		{"TABERU", "たべる"},
		{"kitte", "きって"},
		{"gakkou", "がっこう"},
		{"matcha", "まっちゃ"},
		{"zasshi", "ざっし"},
		{"shinbun", "しんぶん"},
		{"kon'ya", "こんや"},
		{"konya", "こにゃ"},
		{"konnichiha", "こんにちは"},
		{"onna", "おんな"},
		{"konn", "こん"},
		{"hon", "ほん"},
		{"kanji", "かんじ"},
		{"zen'in", "ぜんいん"},
		{"obaasan", "おばあさん"},
		{"toukyou", "とうきょう"},
		{"shya", "しゃ"},
		{"chotto", "ちょっと"},
		{"tsukue", "つくえ"},
		{"fuji", "ふじ"},
		{"ra-men", "らーめん"},
		{"xtsu", "っ"},
		{"wo", "を"},
		// partial input passes the unfinished tail through
		{"tabe", "たべ"},
		{"tab", "たb"},
		{"ky", "ky"},
		{"kony", "こny"},
		// already kana, digits and punctuation pass through
		{"たべる", "たべる"},
		{"たべru", "たべる"},
		{"123", "123"},
		{"ka!", "か!"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.ToHiragana(tt.in))
		})
	}
}

func TestToKatakana(t *testing.T) {
	tr := New()
	tests := []struct {
		in, want string
	}{
		{"terebi", "テレビ"},
		{"ko-hi-", "コーヒー"},
		{"kitte", "キッテ"},
		{"pan", "パン"},
		{"vaiorin", "ヴァイオリン"},
		{"fairu", "ファイル"},
		{"thi-shatsu", "ティーシャツ"},
		{"テレbi", "テレビ"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.ToKatakana(tt.in))
		})
	}
}

func TestPureHiraganaPassesThrough(t *testing.T) {
	tr := New()
	for _, s := range []string{"あいうえお", "がっこう", "しんぶん", "きゃりーぱみゅぱみゅ", "ん", "っ"} {
		assert.Equal(t, s, tr.ToHiragana(s))
	}
}

func TestToRomaji(t *testing.T) {
	tr := New()
	tests := []struct {
		in, want string
	}{
		{"たべる", "taberu"},
		{"がっこう", "gakkou"},
		{"まっちゃ", "matcha"},
		{"こんや", "kon'ya"},
		{"こんにちは", "kon'nichiha"},
		{"しんぶん", "shinbun"},
		{"ラーメン", "ra-men"},
		{"ちょっと", "chotto"},
		{"ふじさん", "fujisan"},
		{"じゃない", "janai"},
		{"っ", "xtu"},
		{"食べる", "食beru"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.ToRomaji(tt.in))
		})
	}
}

func TestRomajiRoundTrip(t *testing.T) {
	tr := New()
	words := []string{
		"たべる", "のみもの", "がっこう", "きって", "こんや", "にゃんこ", "ぜんいん",
		"しゅくだい", "りょこう", "ちゃわん", "まっちゃ", "ざっし", "ふぁいる",
		"ぢ", "づ", "を", "ゔ", "ぁ", "ゃ", "んん", "んあ", "っあ", "おんな",
		"らーめん", "きょうと", "おおさか", "ひゃく", "びょういん", "ぴゃ", "てぃ",
	}
	for _, w := range words {
		romaji := tr.ToRomaji(w)
		assert.Equal(t, w, tr.ToHiragana(romaji), "via %q", romaji)
	}
}

func TestIsComplete(t *testing.T) {
	tr := New()
	assert.True(t, tr.IsComplete("taberu"))
	assert.True(t, tr.IsComplete("hon"))
	assert.False(t, tr.IsComplete("tab"))
	assert.False(t, tr.IsComplete("ky"))
	assert.True(t, tr.IsComplete("たべる"))
}
