package main

// The engine is the stratum session's poolEventHandler.

func (e *MiningEngine) OnJob(job *Job) {
	_ = e.SetWork(job)
}

func (e *MiningEngine) OnPoolDifficulty(difficulty float64) {
	e.UpdatePoolShareDifficulty(difficulty)
}

func (e *MiningEngine) OnShareResult(accepted bool, reason string) {
	e.HandleShareResult(accepted, reason)
}

func (e *MiningEngine) OnSessionState(state sessionState) {
	e.stats.UpdatePoolStatus(state.String())
}
