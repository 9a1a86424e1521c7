package dashboard

import "strategy-lab/internal/campaign"

func targetFor(codes ...string) campaign.Target {
	return campaign.Target{Instruments: codes}
}

func indexTarget(code, name string) campaign.Target {
	return campaign.Target{IndexCode: code, IndexName: name}
}
