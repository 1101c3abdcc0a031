package parser

import (
	"reflect"
	"testing"
)

func TestBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "splits before each delimiter line",
			text: "1] First\nA. x\n\n2] Second\n",
			want: []string{"1] First\nA. x", "2] Second"},
		},
		{
			name: "keeps preamble as its own candidate",
			text: "AWS dump\n\n1] First",
			want: []string{"AWS dump", "1] First"},
		},
		{
			name: "tolerates indented delimiter",
			text: "1] First\n   2] Second",
			want: []string{"1] First", "2] Second"},
		},
		{
			name: "ignores delimiter in the middle of a line",
			text: "1] See question 12] for details\nans-A",
			want: []string{"1] See question 12] for details\nans-A"},
		},
		{
			name: "drops whitespace-only segments",
			text: "\n\n   \n1] Only\n\n\t\n",
			want: []string{"1] Only"},
		},
		{
			name: "empty input",
			text: "   \n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitBlocks(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitBlocks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlocksIsRestartable(t *testing.T) {
	seq := Blocks("1] a\n2] b\n3] c")

	var first, second []string
	for b := range seq {
		first = append(first, b)
	}
	for b := range seq {
		second = append(second, b)
	}
	if len(first) != 3 || !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical passes of 3 blocks, got %q and %q", first, second)
	}
}

func TestBlocksStopsEarly(t *testing.T) {
	count := 0
	for range Blocks("1] a\n2] b\n3] c") {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected to stop after 1 block, got %d", count)
	}
}
