package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{
			name:  "minimal one liner",
			input: "def solve(): return 1",
			want:  true,
		},
		{
			name:  "python function",
			input: "def twoSum(self, nums, target):\n    seen = {}\n    return []",
			want:  true,
		},
		{
			name:  "go function",
			input: "func twoSum(nums []int, target int) []int {\n\treturn nil\n}",
			want:  true,
		},
		{
			name:  "java class",
			input: "class Solution {\n    public int[] twoSum(int[] nums, int target) { return null; }\n}",
			want:  true,
		},
		{
			name:  "output array not code",
			input: "[1,2,3]",
			want:  false,
		},
		{
			name:  "bare number sequence",
			input: "1, 2, 3, 4, 5, 6, 7, 8, 9, 10",
			want:  false,
		},
		{
			name:  "too short",
			input: "def f(): x",
			want:  false,
		},
		{
			name:  "no keywords",
			input: "a quick brown dog jumps over a lazy sheep many times each day",
			want:  false,
		},
		{
			name:  "mostly brackets",
			input: "return [[[[[]]]]]{}{}()()" + "[][][]",
			want:  false,
		},
		{
			name:  "empty",
			input: "",
			want:  false,
		},
		{
			name:  "whitespace only",
			input: "   \n\t  ",
			want:  false,
		},
		{
			name:  "keyword case insensitive",
			input: "DEF solve(): RETURN compute_answer(grid)",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidCode(tt.input))
		})
	}
}

func TestIsValidCode_LongNumberList(t *testing.T) {
	// A long result dump passes the length check but is still not code.
	nums := make([]string, 40)
	for i := range nums {
		nums[i] = "17"
	}
	assert.False(t, IsValidCode("["+strings.Join(nums, ",")+"]"))
}

func TestCountCodeLines(t *testing.T) {
	code := "# comment\ndef f():\n\n    return 1\n// trailing note"
	assert.Equal(t, 2, countCodeLines(code))
}
