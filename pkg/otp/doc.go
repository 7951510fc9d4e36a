// Package otp coordinates the send and verify flows.
//
// Each flow walks three states, received → validated → completed:
//
//	received   the phone is normalized and required fields are checked
//	validated  the settings snapshot is reloaded and the feature toggles,
//	           mode and credentials decide which provider, if any, is called
//	completed  the attempt is audited and a tagged Result is returned
//
// Orchestrator holds no per-challenge state. The provider's request id and
// the audit trail are the only records of a challenge.
//
//	o := otp.NewOrchestrator(otp.Options{
//		Config:   manager,
//		Recorder: recorder,
//	})
//	res := o.Send(ctx, otp.SendRequest{Phone: "9876543210"})
//	if res.Kind != otp.KindSent {
//		httputil.WriteErrorBody(w, res.HTTPStatus(), res.Message, res.ProviderError)
//	}
package otp
