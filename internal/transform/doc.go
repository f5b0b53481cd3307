// Package transform reshapes IGDB game records into the simplified payloads
// served by the proxy.
//
// Missing upstream data never produces an error: absent covers become null,
// absent lists become empty lists and unknown ratings or dates become the
// Unknown label, so every output key is always present.
package transform
