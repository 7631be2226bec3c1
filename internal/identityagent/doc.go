// Package identityagent implements the Identity Agent: the
// in-process client every workload runs to attest to the Workload API,
// hold its current SVID in memory, and proactively rotate it before
// expiry. It implements internal/mtls.CertSource directly so the mTLS
// package needs no awareness of attestation or rotation.
package identityagent
