// Package frame implements the byte-level framing layer of the ECR-to-terminal
// protocol: LRC checksums, STX/ETX/ETB frame construction and parsing, and
// classification of the single-byte flow-control characters (ACK, NAK, ENQ).
package frame
