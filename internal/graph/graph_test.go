package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_DuplicateIdentity(t *testing.T) {
	g := New()
	require.NoError(t, g.Add(NewNode("keyvault", "main")))

	err := g.Add(NewNode("keyvault", "main"))
	var dup *DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, Identity{Kind: "keyvault", Name: "main"}, dup.Identity)

	// Same name under another kind is a different identity.
	assert.NoError(t, g.Add(NewNode("identity", "main")))
}

func TestResolveReferences_ImplicitEdges(t *testing.T) {
	g := New()
	kv := NewNode("keyvault", "main")
	cert := NewNode("certificate", "signing")
	cert.Set("vault", Ref(kv.Identity, "vaultUri"))
	require.NoError(t, g.Add(kv))
	require.NoError(t, g.Add(cert))

	require.NoError(t, g.ResolveReferences())

	assert.Equal(t, []Identity{kv.Identity}, g.Dependencies(cert.Identity))
	assert.Equal(t, []Identity{cert.Identity}, g.Dependents(kv.Identity))
	assert.Empty(t, g.Dependencies(kv.Identity))
}

func TestResolveReferences_NestedCollections(t *testing.T) {
	g := New()
	a := NewNode("identity", "app")
	b := NewNode("webapp", "site")
	b.Set("identities", Lit([]Value{Ref(a.Identity, "principalId")}))
	b.Set("settings", Lit(map[string]Value{"client": Ref(a.Identity, "clientId")}))
	require.NoError(t, g.Add(a))
	require.NoError(t, g.Add(b))

	require.NoError(t, g.ResolveReferences())
	assert.Equal(t, []Identity{a.Identity}, g.Dependencies(b.Identity))
}

func TestResolveReferences_DanglingReference(t *testing.T) {
	g := New()
	cert := NewNode("certificate", "signing")
	cert.Set("vault", Ref(Identity{Kind: "keyvault", Name: "ghost"}, "vaultUri"))
	require.NoError(t, g.Add(cert))

	err := g.ResolveReferences()
	var dangling *DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, cert.Identity, dangling.From)
	assert.Equal(t, Identity{Kind: "keyvault", Name: "ghost"}, dangling.To)
	assert.Equal(t, "vaultUri", dangling.Output)
	assert.False(t, dangling.Excluded)
}

func TestResolveReferences_ReferenceToExcludedNode(t *testing.T) {
	g := New()
	kv := NewNode("keyvault", "main")
	kv.Enabled = false
	cert := NewNode("certificate", "signing")
	cert.Set("vault", Ref(kv.Identity, "vaultUri"))
	require.NoError(t, g.Add(kv))
	require.NoError(t, g.Add(cert))

	err := g.ResolveReferences()
	var dangling *DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.True(t, dangling.Excluded)
}

func TestResolveReferences_DanglingExplicitDependency(t *testing.T) {
	g := New()
	app := NewNode("appregistration", "web")
	app.DependOn(Identity{Kind: "certificate", Name: "missing"})
	require.NoError(t, g.Add(app))

	err := g.ResolveReferences()
	var dangling *DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.Empty(t, dangling.Output)
}

func TestResolveReferences_PrunesExcludedNodes(t *testing.T) {
	g := New()
	kv := NewNode("keyvault", "main")
	extra := NewNode("keyvault", "optional")
	extra.Enabled = false
	require.NoError(t, g.Add(kv))
	require.NoError(t, g.Add(extra))

	require.NoError(t, g.ResolveReferences())
	assert.Equal(t, 1, g.Len())
	_, ok := g.Node(extra.Identity)
	assert.False(t, ok)
}

func TestResolveReferences_Idempotent(t *testing.T) {
	g := New()
	a := NewNode("identity", "app")
	b := NewNode("webapp", "site")
	b.DependOn(a.Identity)
	require.NoError(t, g.Add(a))
	require.NoError(t, g.Add(b))

	require.NoError(t, g.ResolveReferences())
	require.NoError(t, g.ResolveReferences())
	assert.Equal(t, []Identity{a.Identity}, g.Dependencies(b.Identity))
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("keyvault.main")
	require.NoError(t, err)
	assert.Equal(t, Identity{Kind: "keyvault", Name: "main"}, id)

	// Names may carry dots.
	id, err = ParseIdentity("webapp.my.site")
	require.NoError(t, err)
	assert.Equal(t, Identity{Kind: "webapp", Name: "my.site"}, id)

	_, err = ParseIdentity("nodot")
	assert.Error(t, err)
	_, err = ParseIdentity(".noname")
	assert.Error(t, err)
}

func TestIsSensitive(t *testing.T) {
	n := NewNode("appregistration", "web")
	n.Sensitive = []string{"certificateKey"}
	assert.True(t, n.IsSensitive("certificateKey"))
	assert.False(t, n.IsSensitive("displayName"))
}

func TestValueReferences(t *testing.T) {
	target := Identity{Kind: "keyvault", Name: "main"}
	assert.Empty(t, Lit("plain").References())

	refs := Ref(target, "vaultUri").References()
	require.Len(t, refs, 1)
	assert.Equal(t, Reference{Target: target, Output: "vaultUri"}, refs[0])

	nested := Lit(map[string]Value{
		"list": Lit([]Value{Ref(target, "a"), Lit(1)}),
		"flat": Ref(target, "b"),
	})
	assert.Len(t, nested.References(), 2)
}

func TestDanglingReferenceError_Message(t *testing.T) {
	err := &DanglingReferenceError{
		From:   Identity{Kind: "certificate", Name: "signing"},
		To:     Identity{Kind: "keyvault", Name: "ghost"},
		Output: "vaultUri",
	}
	assert.Equal(t,
		`dangling reference to output "vaultUri": certificate.signing -> keyvault.ghost (not in the graph)`,
		err.Error())

	err = &DanglingReferenceError{
		From:     Identity{Kind: "certificate", Name: "signing"},
		To:       Identity{Kind: "keyvault", Name: "optional"},
		Excluded: true,
	}
	assert.Equal(t,
		"dangling explicit dependency: certificate.signing -> keyvault.optional (excluded by its condition)",
		err.Error())
}

func TestErrorsAreDistinct(t *testing.T) {
	var dup *DuplicateIdentityError
	err := error(&CyclicDependencyError{})
	assert.False(t, errors.As(err, &dup))
}
