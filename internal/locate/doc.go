// Package locate finds a UCI engine executable for the command-line tools.
//
// The supervisor never searches for a binary; it runs exactly the path it
// is given. The commands use a Locator to turn flags and environment into
// that path.
//
// Discovery searches in the following order:
//  1. Explicit path in Config.EnginePath (if provided)
//  2. The UCI_ENGINE_PATH environment variable
//  3. System PATH, for each name in Config.Names ("stockfish" by default)
//  4. Common installation directories (/usr/games, /usr/local/bin, /usr/bin,
//     /opt/homebrew/bin)
//
// Identify runs a located engine just long enough to read its "id name".
package locate
