package utils_test

import (
	"testing"

	"github.com/jrsteele09/storefront-session/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"/admin", "/backoffice"}, utils.SplitList(" /admin, ,/backoffice "))
	require.Empty(t, utils.SplitList(""))
}
