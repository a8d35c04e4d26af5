// Package common provides configuration and logging shared across sDB.
//
// Key Components:
//
//   - StoreConfig: The complete configuration surface of a store (directory, secret,
//     file name, format signature, key derivation, file mode and serializer) with
//     defaults, validation and a printable summary that never shows the secret.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's logger
//     registry (github.com/lni/dragonboat/v4/logger) so every package can obtain a
//     named logger with logger.GetLogger and share one consistent format.
package common
