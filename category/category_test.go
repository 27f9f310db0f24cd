package category

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEffectiveVisibilityAscendsParentChain(t *testing.T) {
	var tree Tree
	tree.Update(Info{ID: 0, ParentID: 0, Name: "root", DefaultActive: true, Active: true})
	tree.Update(Info{ID: 1, ParentID: 0, Name: "vehicles", DefaultActive: true, Active: true})
	tree.Update(Info{ID: 2, ParentID: 1, Name: "wheels", DefaultActive: true, Active: true})

	require.True(t, tree.IsActive(2))

	tree.SetActive(1, false)
	require.False(t, tree.IsActive(2), "child of a disabled parent must be hidden")
	require.False(t, tree.IsActive(1))
	require.True(t, tree.IsActive(0))
}

func TestUnknownCategoryDefaultsActive(t *testing.T) {
	var tree Tree
	require.True(t, tree.IsActive(99))
}

func TestSetActiveUnknownReturnsFalse(t *testing.T) {
	var tree Tree
	require.False(t, tree.SetActive(5, false))
}

func TestCycleInParentChainIsInactive(t *testing.T) {
	// A revisit while ascending the parent chain terminates the walk and
	// reports not active.
	var tree Tree
	tree.Update(Info{ID: 1, ParentID: 2, Active: true})
	tree.Update(Info{ID: 2, ParentID: 1, Active: true})

	done := make(chan bool, 1)
	go func() { done <- tree.IsActive(1) }()
	select {
	case v := <-done:
		require.False(t, v)
	case <-time.After(time.Second):
		t.Fatal("IsActive did not return: cycle was not broken")
	}
}

func TestUpdateIsAdditiveNotDestructive(t *testing.T) {
	var tree Tree
	tree.Update(Info{ID: 1, Name: "a"})
	tree.Update(Info{ID: 2, Name: "b"})
	require.Len(t, tree.All(), 2)
}

func TestMessageRoundTrip(t *testing.T) {
	info := Info{ID: 3, ParentID: 1, Name: "tyres", DefaultActive: true, Active: false}
	msg := info.ToMessage()
	back := FromMessage(msg)
	require.Equal(t, info.ID, back.ID)
	require.Equal(t, info.ParentID, back.ParentID)
	require.Equal(t, info.Name, back.Name)
	require.True(t, back.Active) // freshly decoded records seed Active from DefaultActive
}
