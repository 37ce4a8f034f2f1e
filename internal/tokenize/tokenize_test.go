package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"链表是空节点", []string{"链", "表", "是", "空", "节", "点"}},
		{"Hello世界", []string{"hello", "世", "界"}},
		{"EIP-1559升级", []string{"eip", "1559", "升", "级"}},
		{"0xabc123转账", []string{"0xabc123", "转", "账"}},
		{"", nil},
		{"   ", nil},
	}

	for _, c := range cases {
		got := Words(c.in)
		if len(c.want) == 0 {
			assert.Empty(t, got, "input %q", c.in)
			continue
		}
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestIsCJK(t *testing.T) {
	assert.True(t, IsCJK('链'))
	assert.True(t, IsCJK('界'))
	assert.False(t, IsCJK('a'))
	assert.False(t, IsCJK('0'))
}
