package classifier

import "github.com/himanishpuri/RadioDNA/pkg/models"

// Kind applies the content rules in order: music, talk, advertisement.
func Kind(info models.SegmentInfo) models.ContentKind {
	switch {
	case IsMusic(info):
		return models.KindMusic
	case IsTalk(info):
		return models.KindTalk
	case IsAdvertisement(info):
		return models.KindAdvertisement
	}
	return models.KindUnknown
}

func IsMusic(info models.SegmentInfo) bool {
	return (info.SongSpot == 'M' || info.SongSpot == 'F') &&
		info.Length > 0 &&
		(info.MediaBaseID > 0 ||
			info.ITunesTrackID > 0 ||
			(info.AMGArtistID > 0 && info.AMGTrackID > 0) ||
			info.AMGArtworkURL != "")
}

// IsTalk matches e.g.
// song_spot=T MediaBaseId=0 itunesTrackId=0 amgTrackId=0 amgArtistId=0 TAID=0 TPID=0 cartcutId=0
// amgArtworkURL="" length="00:00:00" unsID=0 spotInstanceId=-1
func IsTalk(info models.SegmentInfo) bool {
	return info.SongSpot == 'T' &&
		info.MediaBaseID == 0 &&
		info.ITunesTrackID == 0 &&
		info.AMGArtistID == 0 &&
		info.AMGTrackID == 0 &&
		info.TAID == 0 &&
		info.TPID == 0 &&
		info.AMGArtworkURL == "" &&
		info.SpotInstanceID == nil &&
		info.Length == 0
}

// IsAdvertisement matches spots with amgTrackId=-1 and a spot instance id.
func IsAdvertisement(info models.SegmentInfo) bool {
	return info.SongSpot == 'F' &&
		info.MediaBaseID == 0 &&
		info.ITunesTrackID == 0 &&
		info.AMGArtistID == 0 &&
		info.AMGTrackID == -1 &&
		info.TAID == 0 &&
		info.TPID == 0 &&
		info.CartcutID == 0 &&
		info.AMGArtworkURL == "" &&
		info.SpotInstanceID != nil
}

// ShouldDownload reports whether segments of this kind are fetched and fingerprinted.
func ShouldDownload(kind models.ContentKind) bool {
	return kind != models.KindUnknown
}
