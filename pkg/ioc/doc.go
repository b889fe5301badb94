// Package ioc is the component container.
//
// Components are registered from discovery records (Register) or as
// ready-made instances (RegisterInstance). Registration is idempotent and
// first-writer-wins: registering the same key twice keeps the first
// instance. Reusing an explicit name for a different type or a structurally
// different instance fails with DuplicateKeyConflict.
//
// Resolve injects every pending singleton's dependencies in dependency
// order. A dependency is matched by type key, either the component's own
// type or an interface it declares, and narrowed by explicit name when
// several components qualify. Cycles are tolerated because all instances
// exist before injection starts. After injection, components implementing
// Initializer are notified in the same order.
//
// The container stores the exposed instance, so a component with aspects is
// looked up as its proxy or decorator while its fields are set on the
// wrapped target.
package ioc
