package domain_test

import (
	"testing"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, domain.CompareVersions("2018i", "2019a"))
	assert.Equal(t, -1, domain.CompareVersions("2019a", "2019c"))
	assert.Equal(t, 1, domain.CompareVersions("2019z", "2019y"))
	assert.Equal(t, 0, domain.CompareVersions("2009b", "2009b"))
	assert.Equal(t, -1, domain.CompareVersions("999", "1000"))
}

func TestSortVersions(t *testing.T) {
	in := []string{"2018a", "2019c", "2009b", "2019a", "2019c"}
	assert.Equal(t, []string{"2019c", "2019a", "2018a", "2009b"}, domain.SortVersions(in))
	assert.Equal(t, "2018a", in[0], "input is not modified")
}
