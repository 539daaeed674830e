package shogi

import "testing"

func TestFingerprintInitial(t *testing.T) {
	b := InitialBoard()
	var hands Hands

	want := "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b -/-"
	if got := Fingerprint(b, Sente, &hands); got != want {
		t.Errorf("initial fingerprint\n got %q\nwant %q", got, want)
	}
}

func TestFingerprintSideToMove(t *testing.T) {
	b := InitialBoard()
	var hands Hands

	if Fingerprint(b, Sente, &hands) == Fingerprint(b, Gote, &hands) {
		t.Error("fingerprint must distinguish side to move")
	}
}

func TestFingerprintHandOrderIndependence(t *testing.T) {
	b := InitialBoard()

	var a, c Hands
	a[Sente].Add(Rook)
	a[Sente].Add(Pawn)
	a[Sente].Add(Pawn)
	c[Sente].Add(Pawn)
	c[Sente].Add(Rook)
	c[Sente].Add(Pawn)

	if Fingerprint(b, Sente, &a) != Fingerprint(b, Sente, &c) {
		t.Error("hand insertion order must not change the fingerprint")
	}
}

func TestFingerprintHands(t *testing.T) {
	b := InitialBoard()
	var hands Hands
	hands[Sente].Add(Pawn)
	hands[Sente].Add(Pawn)
	hands[Gote].Add(Bishop)

	want := "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w P:2/b:1"
	if got := Fingerprint(b, Gote, &hands); got != want {
		t.Errorf("fingerprint with hands\n got %q\nwant %q", got, want)
	}
}

func TestFingerprintPromoted(t *testing.T) {
	bd := placeAll(map[Square]Piece{
		{4, 8}: NewPiece(King, Sente),
		{4, 0}: NewPiece(King, Gote),
		{0, 4}: NewPiece(Dragon, Sente),
		{8, 4}: NewPiece(Horse, Gote),
	})
	var hands Hands

	want := "4k4/9/9/9/+R7+b/9/9/9/4K4 b -/-"
	if got := Fingerprint(bd, Sente, &hands); got != want {
		t.Errorf("promoted fingerprint\n got %q\nwant %q", got, want)
	}
}

func TestFingerprintDistinguishesPositions(t *testing.T) {
	b := InitialBoard()
	var hands Hands
	fp0 := Fingerprint(b, Sente, &hands)

	nb, nh := Apply(b, &hands, Sente, NewBoardMove(Square{2, 6}, Square{2, 5}, false))
	fp1 := Fingerprint(nb, Gote, nh)

	if fp0 == fp1 {
		t.Error("different positions must not share a fingerprint")
	}
}
