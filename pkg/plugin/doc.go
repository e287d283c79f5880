// Package plugin is the registration surface a host agent runtime loads.
//
// A Plugin carries a fixed capability table keyed by ModelType and an Init
// lifecycle hook. Init validates configuration and only warns; each
// capability call re-resolves settings from the runtime, the environment and
// the init config, so invocations are stateless and independent.
package plugin
